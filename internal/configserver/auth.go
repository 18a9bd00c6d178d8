package configserver

import (
	"encoding/base64"
	"strings"

	"github.com/muurk/wifiman/internal/auth"
)

const (
	// Username is the only accepted Basic-Auth user.
	Username = "admin"
	// Realm is sent in the WWW-Authenticate challenge.
	Realm = "WiFi Config"
)

// authorized checks an Authorization header. An empty password disables
// the check.
func authorized(headerValue, password string) bool {
	if password == "" {
		return true
	}

	scheme, encoded, ok := strings.Cut(strings.TrimSpace(headerValue), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return false
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok || user != Username {
		return false
	}
	return auth.Verify(password, pass)
}

func challenge() *Response {
	resp := textResponse(StatusUnauthorized, "Authentication required")
	resp.SetHeader("WWW-Authenticate", `Basic realm="`+Realm+`"`)
	return resp
}

// BasicAuthHeader builds the header value a client sends.
func BasicAuthHeader(password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(Username+":"+password))
}

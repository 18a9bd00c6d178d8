package deviceconfig

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/muurk/wifiman/internal/networks"
)

const deviceDoc = `{"schema_version": 2, "known_networks": [{"ssid": "HomeNetwork", "password": "hunter2hunter2"}], "access_point": {"config": {"essid": "wifiman-setup"}, "start_policy": "fallback"}, "config_server": {"enabled": true, "password": "s3cret"}}`

// fakeDevice mimics the device config server's routes and status codes.
type fakeDevice struct {
	mu       sync.Mutex
	doc      []byte
	password string
	gets     int
	posts    int

	// status, when set, is returned for every request.
	status int

	// transform, when set, rewrites a pushed document before storing it.
	transform func([]byte) []byte
}

func newFakeDevice(t *testing.T) (*fakeDevice, *Client) {
	t.Helper()

	dev := &fakeDevice{doc: []byte(deviceDoc), password: "s3cret"}
	ts := httptest.NewServer(dev)
	t.Cleanup(ts.Close)

	client := NewClientWithURL(ts.URL)
	client.Password = "s3cret"
	client.SetTimeout(2 * time.Second)
	client.SetRetry(0, time.Millisecond)
	return dev, client
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status != 0 {
		if r.URL.Path == "/config" && r.Method == http.MethodGet {
			d.gets++
		}
		w.WriteHeader(d.status)
		_, _ = io.WriteString(w, "Error: injected")
		return
	}

	user, pass, ok := r.BasicAuth()
	if !ok || user != Username || pass != d.password {
		w.Header().Set("WWW-Authenticate", `Basic realm="WiFi Config"`)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "Authentication required")
		return
	}

	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, "<html></html>")
	case r.URL.Path == "/config" && r.Method == http.MethodGet:
		d.gets++
		_, _ = w.Write(d.doc)
	case r.URL.Path == "/config" && r.Method == http.MethodPost:
		d.posts++
		body, _ := io.ReadAll(r.Body)
		if err := networks.CheckSections(body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "Error: "+err.Error())
			return
		}
		if d.transform != nil {
			body = d.transform(body)
		}
		d.doc = body
		_, _ = io.WriteString(w, "Configuration updated")
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "Not Found")
	}
}

func (d *fakeDevice) stored() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.doc)
}

func (d *fakeDevice) counts() (gets, posts int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gets, d.posts
}

func (d *fakeDevice) fail(status int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

func (d *fakeDevice) rewrite(fn func([]byte) []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transform = fn
}

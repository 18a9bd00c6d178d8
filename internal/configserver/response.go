package configserver

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/muurk/wifiman/internal/version"
)

const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusNotFound            = 404
	StatusRequestTooLarge     = 413
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
)

var statusText = map[int]string{
	StatusOK:                  "OK",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusNotFound:            "Not Found",
	StatusRequestTooLarge:     "Payload Too Large",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
}

// StatusText returns the reason phrase for code.
func StatusText(code int) string {
	if s, ok := statusText[code]; ok {
		return s
	}
	return "Unknown"
}

type header struct {
	name, value string
}

// Response is written as a literal status line, headers and body. Every
// response closes the connection.
type Response struct {
	Status  int
	Headers []header
	Body    []byte
}

func textResponse(status int, body string) *Response {
	return &Response{
		Status:  status,
		Headers: []header{{"Content-Type", "text/plain; charset=utf-8"}},
		Body:    []byte(body),
	}
}

// SetHeader appends a header.
func (r *Response) SetHeader(name, value string) {
	r.Headers = append(r.Headers, header{name, value})
}

// Bytes renders the full response.
func (r *Response) Bytes() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", r.Status, StatusText(r.Status))
	b.WriteString("Server: " + version.ServerHeader() + "\r\n")
	for _, h := range r.Headers {
		b.WriteString(h.name + ": " + h.value + "\r\n")
	}
	b.WriteString("Content-Length: " + strconv.Itoa(len(r.Body)) + "\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

// WriteTo writes the rendered response to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

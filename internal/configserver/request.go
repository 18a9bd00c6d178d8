package configserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	maxLineLength = 8 * 1024
	maxHeaders    = 64

	// DefaultMaxBody bounds POST bodies.
	DefaultMaxBody = 64 * 1024
)

var (
	ErrRequestLine      = errors.New("malformed request line")
	ErrHeaderLine       = errors.New("malformed header line")
	ErrTooManyHeaders   = errors.New("too many headers")
	ErrLineTooLong      = errors.New("line too long")
	ErrContentLength    = errors.New("invalid Content-Length")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrTruncatedBody    = errors.New("request body shorter than Content-Length")
	ErrTransferEncoding = errors.New("transfer encodings are not supported")
)

// Request is a parsed request. Header names are lower-cased.
type Request struct {
	Method  string
	Target  string
	Path    string
	Proto   string
	Headers map[string]string
	Body    []byte
}

// Header returns the value of name, case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// ReadRequest parses one request:
//
//	request-line = method SP target SP "HTTP/1." DIGIT CRLF
//	header-line  = name ":" OWS value OWS CRLF
//	body         = Content-Length octets
//
// Bare LF line endings are tolerated. Repeated headers are joined with ", ".
func ReadRequest(r *bufio.Reader, maxBody int) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q", ErrRequestLine, line)
	}
	if !isToken(parts[0]) {
		return nil, fmt.Errorf("%w: bad method %q", ErrRequestLine, parts[0])
	}
	if !strings.HasPrefix(parts[2], "HTTP/1.") || len(parts[2]) != len("HTTP/1.1") {
		return nil, fmt.Errorf("%w: unsupported protocol %q", ErrRequestLine, parts[2])
	}

	req := &Request{
		Method:  parts[0],
		Target:  parts[1],
		Path:    parts[1],
		Proto:   parts[2],
		Headers: make(map[string]string),
	}
	if i := strings.IndexAny(req.Path, "?#"); i >= 0 {
		req.Path = req.Path[:i]
	}
	if !strings.HasPrefix(req.Path, "/") {
		return nil, fmt.Errorf("%w: target %q is not a path", ErrRequestLine, req.Target)
	}

	for count := 0; ; count++ {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		if count >= maxHeaders {
			return nil, ErrTooManyHeaders
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || !isToken(name) {
			return nil, fmt.Errorf("%w: %q", ErrHeaderLine, line)
		}
		name = strings.ToLower(name)
		value = strings.Trim(value, " \t")
		if prev, dup := req.Headers[name]; dup {
			value = prev + ", " + value
		}
		req.Headers[name] = value
	}

	if te := req.Header("Transfer-Encoding"); te != "" {
		return nil, fmt.Errorf("%w: %q", ErrTransferEncoding, te)
	}

	cl := req.Header("Content-Length")
	if cl == "" {
		return req, nil
	}
	n, err := strconv.Atoi(cl)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %q", ErrContentLength, cl)
	}
	if maxBody > 0 && n > maxBody {
		return nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, n, maxBody)
	}

	req.Body = make([]byte, n)
	if _, err := io.ReadFull(r, req.Body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrTruncatedBody
		}
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return req, nil
}

func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return "", fmt.Errorf("%w: unterminated line", ErrHeaderLine)
			}
			return "", err
		}
		buf = append(buf, chunk...)
		if len(buf) > maxLineLength {
			return "", ErrLineTooLong
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}

func isToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return s != ""
}

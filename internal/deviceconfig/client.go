package deviceconfig

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/version"
	"go.uber.org/zap"
)

const (
	// Username is the only user the config server accepts
	Username = "admin"

	// DefaultPort is the config server port
	DefaultPort = 8080

	// DefaultTimeout covers a push, which includes a setup cycle on the device
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	documentPath = "/config"
)

// Client talks to one config server.
type Client struct {
	// BaseURL is the base URL for the device (e.g., "http://192.168.4.16:8080")
	BaseURL string

	// Password for HTTP Basic Auth. Empty sends no Authorization header.
	Password string

	HTTPClient *http.Client

	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after each retry
	UseExponentialBackoff bool
}

// NewClient creates a client for host:port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a new client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping fetches the editor page to check reachability and credentials.
func (c *Client) Ping() error {
	_, err := c.do("GET", "/", nil)
	return err
}

// GetDocument returns the network document exactly as stored on the device.
func (c *Client) GetDocument() ([]byte, error) {
	var body []byte
	err := c.withRetry(func() error {
		var err error
		body, err = c.do("GET", documentPath, nil)
		return err
	})
	return body, err
}

// PushDocument replaces the network document. The device runs a setup
// cycle before it answers.
func (c *Client) PushDocument(doc []byte) error {
	return c.withRetry(func() error {
		_, err := c.do("POST", documentPath, doc)
		return err
	})
}

func (c *Client) withRetry(attempt func() error) error {
	var lastErr error
	delay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			logging.Debug("Retrying config server request",
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			time.Sleep(delay)
			if c.UseExponentialBackoff {
				delay *= 2
				if delay > c.MaxRetryDelay {
					delay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) do(method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Password != "" {
		req.SetBasicAuth(Username, c.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		ce := ClassifyNetworkError(err, req.URL.Host)
		ce.Message = fmt.Sprintf("%s %s failed", method, path)
		return nil, ce
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, NewAuthError("authentication failed (check password)")
	case http.StatusBadRequest:
		return nil, NewValidationError(serverMessage(body))
	default:
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, serverMessage(body)))
	}
}

// serverMessage strips the "Error: " prefix the config server puts on
// failure bodies.
func serverMessage(body []byte) string {
	return strings.TrimPrefix(strings.TrimSpace(string(body)), "Error: ")
}

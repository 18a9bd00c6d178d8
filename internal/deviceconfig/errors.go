package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, timeout, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates the server rejected the credentials
	ErrTypeAuth
	// ErrTypeHTTP indicates an unexpected status code
	ErrTypeHTTP
	// ErrTypeValidation indicates a document the server (or local checks) rejected
	ErrTypeValidation
	ErrTypeTimeout
	ErrTypeConnectionRefused
	ErrTypeDNS
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ClientError is any failure talking to a config server.
type ClientError struct {
	Type           ErrorType
	Message        string
	StatusCode     int // HTTP status code (if applicable)
	Err            error
	NetworkSubtype NetworkErrorSubtype
	Host           string
	Retryable      bool
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ClientError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, host string) *ClientError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &ClientError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ClientError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &ClientError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Device refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Host:           host,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &ClientError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Host:           host,
				Retryable:      true,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &ClientError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Host:           host,
				Retryable:      true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err, host)
	}

	return &ClientError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *ClientError {
	if classified := ClassifyNetworkError(err, ""); classified != nil {
		classified.Message = message
		return classified
	}
	return &ClientError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *ClientError {
	return &ClientError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewHTTPError creates an HTTP-level error. Server errors are retryable.
func NewHTTPError(statusCode int, message string) *ClientError {
	return &ClientError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *ClientError {
	return &ClientError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

func clientErrorOf(err error) (*ClientError, bool) {
	var ce *ClientError
	ok := errors.As(err, &ce)
	return ce, ok
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	if ce, ok := clientErrorOf(err); ok {
		return ce.Type == ErrTypeNetwork ||
			ce.Type == ErrTypeTimeout ||
			ce.Type == ErrTypeConnectionRefused ||
			ce.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	ce, ok := clientErrorOf(err)
	return ok && ce.Type == ErrTypeAuth
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	ce, ok := clientErrorOf(err)
	return ok && ce.Type == ErrTypeHTTP
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	ce, ok := clientErrorOf(err)
	return ok && ce.Type == ErrTypeValidation
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	ce, ok := clientErrorOf(err)
	return ok && ce.Retryable
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	ce, ok := clientErrorOf(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch ce.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The device did not respond in time.",
			"Troubleshooting:",
			"  • The config server handles one request at a time; retry in a few seconds",
			"  • A push runs a full setup cycle on the device, which can take several seconds",
			"  • Move closer to the device to improve signal strength",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The device refused the connection.",
			"Troubleshooting:",
			"  • Check that config_server.enabled is true in the device's network document",
			"  • A config server without a password needs allow_unauthenticated",
			"  • Verify the port number (default is 8080)",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the device hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Run 'wifiman-cfg discover' to find devices over mDNS",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"Authentication failed.",
			"Troubleshooting:",
			"  • The username is always 'admin'",
			"  • Pass the password with --password or WIFIMAN_PASSWORD",
			"  • The password is config_server.password in the device's network document",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}

		switch ce.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The device is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the device address is correct",
				"  • If the device fell back to its access point, join that network first",
				"  • Try pinging the device: ping "+ce.Host)

		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the device's network.",
				"Troubleshooting:",
				"  • Join the device's access point (default essid wifiman-setup)",
				"  • Verify WiFi is enabled on your computer")

		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the device is powered on")
		}

		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		if ce.StatusCode == http.StatusRequestEntityTooLarge {
			return "The document is larger than the device's max_body setting."
		}
		if ce.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The device returned an error (HTTP %d).", ce.StatusCode),
				"Troubleshooting:",
				"  • Check the device's log for the failing operation",
				"  • The document file may be unreadable on the device",
			}, "\n")
		}
		return fmt.Sprintf("The device returned HTTP error %d.", ce.StatusCode)

	case ErrTypeValidation:
		return "The document is invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	ce, ok := clientErrorOf(err)
	if !ok {
		return err.Error()
	}

	switch ce.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection - is the config server enabled?"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeAuth:
		return "Authentication failed - check password"
	case ErrTypeNetwork:
		switch ce.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Device unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check WiFi connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("Device error (HTTP %d)", ce.StatusCode)
	default:
		return ce.Message
	}
}

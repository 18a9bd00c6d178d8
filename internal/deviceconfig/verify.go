package deviceconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// VerificationOptions configures how configuration verification behaves
type VerificationOptions struct {
	// MaxRetries is the maximum number of verification attempts
	MaxRetries int

	// InitialDelay is the delay before the first read-back
	InitialDelay time.Duration

	// RetryDelay is the delay between retry attempts
	RetryDelay time.Duration

	UseExponentialBackoff bool
	MaxRetryDelay         time.Duration
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            3,
		InitialDelay:          200 * time.Millisecond,
		RetryDelay:            1 * time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         5 * time.Second,
	}
}

// VerificationResult contains the results of a document verification
type VerificationResult struct {
	Success  bool
	Attempts int

	// Actual is the document read back from the device
	Actual []byte

	// Mismatches lists the top-level sections that differ
	Mismatches []string

	Error error
}

// VerifyDocument reads the document back until it matches expected or the
// attempts run out. The server returns stored bytes verbatim, so a byte
// match is expected; JSON-equivalent documents are accepted too.
func (c *Client) VerifyDocument(expected []byte, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}
	result := &VerificationResult{}

	time.Sleep(opts.InitialDelay)
	delay := opts.RetryDelay

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		result.Attempts = attempt
		if attempt > 1 {
			time.Sleep(delay)
			if opts.UseExponentialBackoff {
				delay *= 2
				if delay > opts.MaxRetryDelay {
					delay = opts.MaxRetryDelay
				}
			}
		}

		actual, err := c.GetDocument()
		if err != nil {
			result.Error = fmt.Errorf("failed to read document back (attempt %d/%d): %w", attempt, opts.MaxRetries, err)
			if !IsRetryable(err) {
				return result
			}
			continue
		}

		result.Actual = actual
		result.Mismatches = compareDocuments(expected, actual)
		if len(result.Mismatches) == 0 {
			result.Success = true
			result.Error = nil
			return result
		}
		result.Error = NewValidationError(formatMismatches(result.Mismatches))
	}

	return result
}

// PushAndVerify pushes doc and verifies it.
func (c *Client) PushAndVerify(doc []byte, opts *VerificationOptions) *VerificationResult {
	if err := c.PushDocument(doc); err != nil {
		return &VerificationResult{Error: fmt.Errorf("push failed: %w", err)}
	}
	return c.VerifyDocument(doc, opts)
}

// compareDocuments returns the top-level keys whose values differ. An
// undecodable side is reported as a whole-document mismatch.
func compareDocuments(expected, actual []byte) []string {
	if bytes.Equal(expected, actual) {
		return nil
	}

	var want, got map[string]any
	if json.Unmarshal(expected, &want) != nil || json.Unmarshal(actual, &got) != nil {
		return []string{"document"}
	}

	var mismatches []string
	for key, w := range want {
		g, ok := got[key]
		if !ok {
			mismatches = append(mismatches, key+" (missing on device)")
			continue
		}
		if !reflect.DeepEqual(w, g) {
			mismatches = append(mismatches, key)
		}
	}
	for key := range got {
		if _, ok := want[key]; !ok {
			mismatches = append(mismatches, key+" (unexpected on device)")
		}
	}
	sort.Strings(mismatches)
	return mismatches
}

func formatMismatches(mismatches []string) string {
	if len(mismatches) == 1 {
		return "document mismatch: " + mismatches[0]
	}
	return fmt.Sprintf("document mismatch in %d sections: %s", len(mismatches), strings.Join(mismatches, ", "))
}

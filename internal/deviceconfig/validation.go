package deviceconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/wifiman/internal/auth"
	"github.com/muurk/wifiman/internal/networks"
)

// ValidationWarning marks a finding that does not block a push.
type ValidationWarning struct {
	Message string
}

func (w *ValidationWarning) Error() string {
	return "warning: " + w.Message
}

func warning(format string, args ...any) error {
	return &ValidationWarning{Message: fmt.Sprintf(format, args...)}
}

// ValidateSSID checks the 802.11 length limit of 1 to 32 bytes.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("SSID cannot be empty")
	}
	if len(ssid) > 32 {
		return NewValidationError(fmt.Sprintf("SSID too long (max 32 bytes): %d bytes", len(ssid)))
	}
	return nil
}

// ValidatePassphrase accepts an empty passphrase (open network), 8 to 63
// printable characters, or a 64 digit hex PSK.
func ValidatePassphrase(password string) error {
	switch {
	case password == "":
		return nil
	case len(password) == 64 && isHex(password):
		return nil
	case len(password) < 8:
		return NewValidationError(fmt.Sprintf("WPA passphrase too short (min 8 chars): %d chars", len(password)))
	case len(password) > 63:
		return NewValidationError(fmt.Sprintf("WPA passphrase too long (max 63 chars): %d chars", len(password)))
	}
	return nil
}

// ValidateDocument parses data and checks it for problems the device would
// only discover at runtime. The returned slice mixes ValidationWarning
// values with errors; use SeparateWarningsAndErrors to split them.
func ValidateDocument(data []byte) (*networks.Document, []error) {
	if err := networks.CheckSections(data); err != nil {
		return nil, []error{NewValidationError(err.Error())}
	}
	doc, err := networks.Parse(data)
	if err != nil {
		return nil, []error{NewValidationError(err.Error())}
	}

	var errs []error
	if doc.SchemaVersion != networks.SchemaVersion {
		errs = append(errs, warning("schema_version is %d, this build writes %d", doc.SchemaVersion, networks.SchemaVersion))
	}

	seen := make(map[string]int)
	for i, n := range doc.KnownNetworks {
		if err := ValidateSSID(n.SSID); err != nil {
			errs = append(errs, fmt.Errorf("known_networks[%d]: %w", i, err))
		}
		if err := ValidatePassphrase(n.Password); err != nil {
			errs = append(errs, fmt.Errorf("known_networks[%d] (%s): %w", i, n.SSID, err))
		}
		if first, dup := seen[n.SSID]; dup {
			errs = append(errs, warning("known_networks[%d] repeats %q from entry %d and is never tried", i, n.SSID, first))
		} else {
			seen[n.SSID] = i
		}
	}

	ap := doc.AccessPoint
	if ap.Config.Essid() == "" {
		errs = append(errs, warning("access_point.config has no essid; the driver default is used"))
	} else if err := ValidateSSID(ap.Config.Essid()); err != nil {
		errs = append(errs, fmt.Errorf("access_point.config.essid: %w", err))
	}
	if pw, ok := ap.Config["password"].(string); ok {
		if err := ValidatePassphrase(pw); err != nil {
			errs = append(errs, fmt.Errorf("access_point.config.password: %w", err))
		}
	}
	if ap.StartPolicy == networks.PolicyNever && len(doc.KnownNetworks) == 0 {
		errs = append(errs, warning("no known networks and start_policy never: the device will be unreachable"))
	}

	if cs := doc.ConfigServer; cs != nil && cs.Enabled {
		switch {
		case cs.Password == "" && !cs.AllowUnauthenticated:
			errs = append(errs, NewValidationError("config_server has no password; set one or allow_unauthenticated"))
		case cs.Password == "":
			errs = append(errs, warning("config_server accepts unauthenticated requests"))
		case !auth.IsHash(cs.Password):
			errs = append(errs, warning("config_server password is stored in plaintext; use 'wifiman hash-password'"))
		}
	} else {
		errs = append(errs, warning("config_server is disabled: this document cannot be changed remotely once pushed"))
	}

	return doc, errs
}

// FormatValidationErrors formats a slice of validation errors into a human-readable string
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d validation problems:\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return b.String()
}

// IsWarning checks if an error is a warning (non-critical)
func IsWarning(err error) bool {
	var w *ValidationWarning
	return errors.As(err, &w)
}

// SeparateWarningsAndErrors separates warnings from critical errors
func SeparateWarningsAndErrors(errs []error) (warnings []error, criticalErrors []error) {
	for _, err := range errs {
		if IsWarning(err) {
			warnings = append(warnings, err)
		} else {
			criticalErrors = append(criticalErrors, err)
		}
	}
	return warnings, criticalErrors
}

func isHex(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

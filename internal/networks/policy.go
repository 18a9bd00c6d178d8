package networks

import (
	"encoding/json"
	"strings"

	"github.com/muurk/wifiman/internal/logging"
	"go.uber.org/zap"
)

// Policy governs when the local access point is active.
type Policy int

const (
	// PolicyNever keeps the access point off.
	PolicyNever Policy = iota
	// PolicyFallback runs the access point while the station has no address.
	PolicyFallback
	// PolicyAlways keeps the access point on.
	PolicyAlways
)

func (p Policy) String() string {
	switch p {
	case PolicyFallback:
		return "fallback"
	case PolicyAlways:
		return "always"
	default:
		return "never"
	}
}

// ParsePolicy maps a policy name to a Policy. Empty or unknown names give
// PolicyNever and ok=false.
func ParsePolicy(s string) (p Policy, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never":
		return PolicyNever, true
	case "fallback":
		return PolicyFallback, true
	case "always":
		return PolicyAlways, true
	default:
		return PolicyNever, false
	}
}

// MarshalJSON writes the policy name.
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON never fails on an unknown name; it logs and picks never.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		logging.Warn("Ignoring non-string start_policy", zap.ByteString("value", data))
		*p = PolicyNever
		return nil
	}

	parsed, ok := ParsePolicy(s)
	if !ok && s != "" {
		logging.Warn("Unknown start_policy, using never", zap.String("start_policy", s))
	}
	*p = parsed
	return nil
}

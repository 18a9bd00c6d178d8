package deviceconfig

import (
	"fmt"
	"strings"

	"github.com/muurk/wifiman/internal/auth"
	"github.com/muurk/wifiman/internal/networks"
)

// Summary returns a one-line summary of a document.
func Summary(doc *networks.Document) string {
	return fmt.Sprintf("%d known network(s), AP %q (%s)",
		len(doc.KnownNetworks), doc.AccessPoint.Config.Essid(), doc.AccessPoint.StartPolicy)
}

// MaskSecret hides a password. Argon2 hashes are shown as such so an
// operator can tell a hashed server password from a plaintext one.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return "(none)"
	case auth.IsHash(s):
		return "(argon2id hash)"
	default:
		return strings.Repeat("*", 8)
	}
}

// FormatNetworks lists the known networks in preference order.
func FormatNetworks(doc *networks.Document) string {
	var b strings.Builder

	b.WriteString("=== Known Networks ===\n")
	if len(doc.KnownNetworks) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}
	for i, n := range doc.KnownNetworks {
		companion := ""
		if n.EnablesCompanion {
			companion = "  [companion]"
		}
		b.WriteString(fmt.Sprintf("%2d. %-32s password: %s%s\n", i+1, n.SSID, MaskSecret(n.Password), companion))
	}
	return b.String()
}

// FormatAccessPoint describes the access_point section.
func FormatAccessPoint(doc *networks.Document) string {
	var b strings.Builder
	ap := doc.AccessPoint

	b.WriteString("=== Access Point ===\n")
	b.WriteString(fmt.Sprintf("ESSID:        %s\n", ap.Config.Essid()))
	b.WriteString(fmt.Sprintf("Start policy: %s\n", ap.StartPolicy))
	b.WriteString(fmt.Sprintf("Companion:    %v\n", ap.EnablesCompanion))

	for _, key := range ap.Config.Keys() {
		if key == "essid" || key == "ssid" {
			continue
		}
		value := fmt.Sprint(ap.Config[key])
		if key == "password" {
			value = MaskSecret(value)
		}
		b.WriteString(fmt.Sprintf("  %-12s %s\n", key+":", value))
	}
	return b.String()
}

// FormatConfigServer describes the config_server section.
func FormatConfigServer(doc *networks.Document) string {
	var b strings.Builder

	b.WriteString("=== Config Server ===\n")
	cs := doc.ConfigServer
	if cs == nil {
		b.WriteString("Enabled:  false (section absent)\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Enabled:  %v\n", cs.Enabled))
	b.WriteString(fmt.Sprintf("Password: %s\n", MaskSecret(cs.Password)))
	if cs.AllowUnauthenticated {
		b.WriteString("WARNING: unauthenticated access allowed\n")
	}
	return b.String()
}

// FormatDocument renders every section with secrets masked.
func FormatDocument(doc *networks.Document) string {
	var b strings.Builder

	b.WriteString(FormatNetworks(doc))
	b.WriteString("\n")
	b.WriteString(FormatAccessPoint(doc))
	b.WriteString("\n")
	b.WriteString(FormatConfigServer(doc))

	return b.String()
}

package planner

import "github.com/muurk/wifiman/internal/networks"

// Candidate pairs a known network's credentials with one scanned radio.
type Candidate struct {
	SSID             string
	BSSID            BSSID
	Password         string
	EnablesCompanion bool
	Strength         int
}

// Rank joins known networks against sorted scan records. Output order is
// preference first, then strength. SSIDs must match exactly.
func Rank(known []networks.KnownNetwork, scans []ScanRecord) []Candidate {
	var candidates []Candidate
	for _, k := range known {
		for _, s := range scans {
			if s.SSID != k.SSID {
				continue
			}
			candidates = append(candidates, Candidate{
				SSID:             s.SSID,
				BSSID:            s.BSSID,
				Password:         k.Password,
				EnablesCompanion: k.EnablesCompanion,
				Strength:         s.Strength,
			})
		}
	}
	return candidates
}

// SSIDs returns the distinct candidate SSIDs in plan order.
func SSIDs(candidates []Candidate) []string {
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.SSID] {
			continue
		}
		seen[c.SSID] = true
		out = append(out, c.SSID)
	}
	return out
}

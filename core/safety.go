package core

import (
	"strings"

	"pkt.systems/askd/schema"
)

// SafetyGate flags commands that contain destructive-intent terms.
type SafetyGate struct {
	terms []string
}

// NewSafetyGate builds a gate from terms; a nil slice selects the default
// denylist while an empty non-nil slice disables the gate.
func NewSafetyGate(terms []string) SafetyGate {
	if terms == nil {
		terms = schema.DefaultDenylist
	}
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return SafetyGate{terms: out}
}

// Match returns the first denylisted term found in command, case-insensitively.
func (g SafetyGate) Match(command string) (string, bool) {
	lower := strings.ToLower(command)
	for _, term := range g.terms {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

// Terms returns the normalized denylist.
func (g SafetyGate) Terms() []string {
	return append([]string(nil), g.terms...)
}

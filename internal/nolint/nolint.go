// Package nolint tracks the regions of program files where issues are not
// reported. Regions come from "# nolint" comments and nolint lists in the
// file itself.
package nolint

import (
	"fmt"
	"go/token"
	"strings"
)

const nolintPrefix = "nolint"

// Manager manages nolint scopes and checks if a position is nolinted.
type Manager struct {
	// scopes maps filename to a slice of nolint scopes.
	scopes map[string][]nolintScope
}

// nolintScope represents a range of lines where nolint applies.
type nolintScope struct {
	rules map[string]struct{}
	start token.Position
	end   token.Position
}

func NewManager() *Manager {
	return &Manager{scopes: make(map[string][]nolintScope)}
}

// Add silences rules on the lines from start to end, which must belong to
// the same file. An empty rule list silences every rule.
func (m *Manager) Add(start, end token.Position, rules []string) {
	ns := nolintScope{
		rules: make(map[string]struct{}, len(rules)),
		start: start,
		end:   end,
	}
	for _, r := range rules {
		if r = strings.TrimSpace(r); r != "" {
			ns.rules[r] = struct{}{}
		}
	}
	m.scopes[start.Filename] = append(m.scopes[start.Filename], ns)
}

// AddComment adds a scope for every nolint line of a YAML comment block.
// It reports whether one was found; other comment lines are ignored.
func (m *Manager) AddComment(comment string, start, end token.Position) bool {
	found := false
	for _, line := range strings.Split(comment, "\n") {
		rules, err := ParseComment(line)
		if err != nil {
			// ignore invalid nolint comments
			continue
		}
		ns := nolintScope{rules: rules, start: start, end: end}
		m.scopes[start.Filename] = append(m.scopes[start.Filename], ns)
		found = true
	}
	return found
}

// ParseComment parses a single comment line. A nolint comment either
// lists rules after a colon or, with no list, applies to all rules:
//
//	# nolint
//	# nolint: null-dereference, class-cast
func ParseComment(text string) (map[string]struct{}, error) {
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "#"))
	if !strings.HasPrefix(text, nolintPrefix) {
		return nil, fmt.Errorf("invalid nolint comment")
	}

	rest := text[len(nolintPrefix):]
	if len(rest) > 0 && rest[0] != ':' {
		return nil, fmt.Errorf("invalid nolint comment format")
	}

	if len(rest) > 0 && rest[0] == ':' {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		if rest == "" {
			return nil, fmt.Errorf("invalid nolint comment: no rules specified after colon")
		}
	}
	return parseIgnoreRuleNames(rest), nil
}

// parseIgnoreRuleNames parses the rule list from the nolint comment.
func parseIgnoreRuleNames(text string) map[string]struct{} {
	rulesMap := make(map[string]struct{})
	if text == "" {
		return rulesMap
	}
	rules := strings.Split(text, ",")
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule != "" {
			rulesMap[rule] = struct{}{}
		}
	}
	return rulesMap
}

// IsNolint checks if a given position and rule are nolinted.
func (m *Manager) IsNolint(pos token.Position, ruleName string) bool {
	if m == nil {
		return false
	}
	scopes, exists := m.scopes[pos.Filename]
	if !exists {
		return false
	}
	for _, ns := range scopes {
		if pos.Line < ns.start.Line || pos.Line > ns.end.Line {
			continue
		}
		// If the rules list is empty, nolint applies to all rules
		if len(ns.rules) == 0 {
			return true
		}
		if _, exists := ns.rules[ruleName]; exists {
			return true
		}
	}
	return false
}

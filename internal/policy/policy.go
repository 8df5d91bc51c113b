// Package policy maps route patterns to the minimum role required to
// reach them. The table is loaded once at service start and read-only
// thereafter; enforcement happens in a gin middleware placed after the
// request guard has (or has not) established a principal.
package policy

import (
	"fmt"
	"strings"
)

// Requirement is the closed set of route access levels.
type Requirement int

const (
	// RequireAuthenticated is the default for unmatched routes:
	// default-deny, any valid principal suffices.
	RequireAuthenticated Requirement = iota
	RequirePublic
	RequireAdmin
)

func (r Requirement) String() string {
	switch r {
	case RequirePublic:
		return "public"
	case RequireAdmin:
		return "admin"
	default:
		return "authenticated"
	}
}

// ParseRequirement accepts the spellings used in policy files.
func ParseRequirement(s string) (Requirement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return RequirePublic, nil
	case "authenticated", "":
		return RequireAuthenticated, nil
	case "admin", "role=admin":
		return RequireAdmin, nil
	default:
		return 0, fmt.Errorf("unknown requirement %q", s)
	}
}

// Rule binds one path pattern, optionally narrowed to a method, to a
// requirement. Patterns are either exact paths or a prefix followed by
// "/*" which matches everything below it.
type Rule struct {
	Pattern string
	Method  string
	Require Requirement
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && !strings.EqualFold(r.Method, method) {
		return false
	}
	return matchPath(r.Pattern, path)
}

func matchPath(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(path, prefix+"/")
	}
	return pattern == path
}

// Table is an ordered rule set; first match wins.
type Table struct {
	rules []Rule
}

func NewTable(rules []Rule) (*Table, error) {
	for i, r := range rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %d: pattern is required", i)
		}
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("rule %d: pattern %q must start with /", i, r.Pattern)
		}
	}
	return &Table{rules: rules}, nil
}

// Match resolves the requirement for a request. Unmatched requests
// default to RequireAuthenticated.
func (t *Table) Match(method, path string) Requirement {
	for _, r := range t.rules {
		if r.matches(method, path) {
			return r.Require
		}
	}
	return RequireAuthenticated
}

// PublicPaths is a guard's allow-list: requests matching it pass the
// guard with no principal established. Entries are path prefixes,
// optionally narrowed to one method ("GET /v1/cafeterias").
type PublicPaths []string

func (p PublicPaths) Match(method, path string) bool {
	for _, entry := range p {
		prefix := entry
		if m, rest, ok := strings.Cut(entry, " "); ok && !strings.HasPrefix(m, "/") {
			if !strings.EqualFold(m, method) {
				continue
			}
			prefix = strings.TrimSpace(rest)
		}
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

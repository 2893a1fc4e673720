package translation

import (
	"fmt"
	"strings"
)

// Scope is a bitmask of visibility and usage flags attached to a variant.
type Scope uint8

const (
	// ScopeExplicitUsage marks variants users may call by name.
	ScopeExplicitUsage Scope = 1 << iota
	// ScopeSuggested marks variants offered by autocompletion.
	ScopeSuggested
	// ScopeDocumented marks variants listed in documentation.
	ScopeDocumented
	// ScopeWindow marks variants usable as window functions.
	ScopeWindow

	ScopeDefault = ScopeExplicitUsage | ScopeSuggested | ScopeDocumented
)

var scopeNames = []struct {
	scope Scope
	name  string
}{
	{ScopeExplicitUsage, "explicit_usage"},
	{ScopeSuggested, "suggested"},
	{ScopeDocumented, "documented"},
	{ScopeWindow, "window"},
}

// Has reports whether every flag of required is set on s.
func (s Scope) Has(required Scope) bool {
	return s&required == required
}

// Names returns the flag names set on s.
func (s Scope) Names() []string {
	var out []string
	for _, sn := range scopeNames {
		if s&sn.scope != 0 {
			out = append(out, sn.name)
		}
	}
	return out
}

func (s Scope) String() string {
	if s == 0 {
		return "none"
	}
	return strings.Join(s.Names(), "|")
}

// ParseScopes unions named flags. "default" expands to ScopeDefault.
func ParseScopes(names ...string) (Scope, error) {
	var out Scope
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "default" {
			out |= ScopeDefault
			continue
		}
		found := false
		for _, sn := range scopeNames {
			if sn.name == n {
				out |= sn.scope
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown scope %q", n)
		}
	}
	return out, nil
}

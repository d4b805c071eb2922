// Package trustlist implements the allow-list override: domains matching it
// bypass every other signal and score zero.
package trustlist

import (
	"strings"

	"github.com/phishscan/phishscan/backend/internal/ruleset"
)

// Matcher answers trust queries against a fixed ruleset. Safe for concurrent
// use; it never mutates the ruleset.
type Matcher struct {
	rules *ruleset.Ruleset
}

func New(rules *ruleset.Ruleset) *Matcher {
	return &Matcher{rules: rules}
}

// Match reports whether the registrable domain is trusted, along with the
// rule that matched. Rules are checked in fixed order: exact entry,
// dot-suffix of an entry, trust pattern, then the generic institutional
// suffixes.
func (m *Matcher) Match(domain string) (bool, string) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false, ""
	}

	if m.rules.TrustedDomains[domain] {
		return true, domain
	}
	for trusted := range m.rules.TrustedDomains {
		if strings.HasSuffix(domain, "."+trusted) {
			return true, "." + trusted
		}
	}
	for _, pattern := range m.rules.TrustedPatterns {
		if pattern.MatchString(domain) {
			return true, pattern.String()
		}
	}

	if strings.HasSuffix(domain, ".edu") || strings.Contains(domain, ".edu.") || strings.Contains(domain, ".ac.") {
		return true, "edu"
	}
	if strings.HasSuffix(domain, ".gov") || strings.Contains(domain, ".gov.") {
		return true, "gov"
	}
	if strings.HasSuffix(domain, ".org") {
		return true, "org"
	}
	return false, ""
}

// IsTrusted is Match without the rule.
func (m *Matcher) IsTrusted(domain string) bool {
	trusted, _ := m.Match(domain)
	return trusted
}

package analyzer

import (
	"strings"
	"testing"

	"github.com/phishscan/phishscan/backend/internal/ruleset"
	"github.com/phishscan/phishscan/backend/internal/urlinfo"
)

func lexicalFor(t *testing.T, raw string) []Finding {
	t.Helper()
	norm := urlinfo.Normalize(raw)
	parts := urlinfo.SplitHost(norm.Host)
	return lexicalFindings(norm, parts, ruleset.Default())
}

func totalWeight(findings []Finding) int {
	sum := 0
	for _, f := range findings {
		sum += f.Weight
	}
	return sum
}

func hasDescription(findings []Finding, fragment string) bool {
	for _, f := range findings {
		if strings.Contains(f.Description, fragment) {
			return true
		}
	}
	return false
}

func TestLexicalFindings(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantWeight int
		wantHint   string
	}{
		{"clean url", "http://example.com/about", 0, ""},
		{"ipv4 host", "http://203.0.113.5/login", 8, "IP address"},
		{"punycode label", "http://xn--pple-43d.com", 5, "punycode"},
		{"punycode inner label", "http://login.xn--pple-43d.com", 5, "punycode"},
		{"punycode marker mid-label ignored", "http://faxn--y.com", 0, ""},
		{"unicode homoglyph", "http://аpple.com", 5, "non-ASCII"},
		{"deep subdomains", "http://a.b.c.d.e.example.com", 2, "subdomain chain"},
		{"suspicious tld", "http://totally-legit.top", 4, "abused"},
		{"at symbol", "http://example.com/@redirect", 5, "@"},
		{"double slash in path", "http://example.com/a//b", 2, "//"},
		{"many hyphens", "http://a-b-c-d-e.example.com", 2, "hyphens"},
		{"bait keyword", "http://example.com/login-secure", 3, "bait"},
		{"keyword counted once", "http://example.com/login-secure/verify-account", 3, "bait"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			findings := lexicalFor(t, tc.raw)
			if got := totalWeight(findings); got != tc.wantWeight {
				t.Errorf("lexical weight for %q = %d, want %d (findings: %+v)", tc.raw, got, tc.wantWeight, findings)
			}
			if tc.wantHint != "" && !hasDescription(findings, tc.wantHint) {
				t.Errorf("expected a finding mentioning %q for %q, got %+v", tc.wantHint, tc.raw, findings)
			}
		})
	}
}

func TestLexicalLongURL(t *testing.T) {
	raw := "http://example.com/" + strings.Repeat("a", 200)
	findings := lexicalFor(t, raw)
	if got := totalWeight(findings); got != 2 {
		t.Errorf("long URL weight = %d, want 2", got)
	}
}

func TestLexicalIsDeterministic(t *testing.T) {
	raw := "http://pay-now.totally-legit-bank.xyz/login-secure"
	first := lexicalFor(t, raw)
	for i := 0; i < 10; i++ {
		again := lexicalFor(t, raw)
		if len(again) != len(first) || totalWeight(again) != totalWeight(first) {
			t.Fatalf("lexical findings changed between runs: %+v vs %+v", first, again)
		}
	}
}

func TestLexicalSurvivesGarbage(t *testing.T) {
	inputs := []string{
		"",
		"\x00\x01\x02",
		strings.Repeat("a", 100000),
		"http://" + strings.Repeat(".", 500),
		"http://[::1]:8080/path",
	}
	for _, raw := range inputs {
		// Must not panic, any findings are acceptable.
		lexicalFor(t, raw)
	}
}

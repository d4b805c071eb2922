package ruleset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTables(t *testing.T) {
	rs := Default()

	if rs.PhishingThreshold != 35 {
		t.Errorf("PhishingThreshold = %d, want 35", rs.PhishingThreshold)
	}
	if rs.SuspiciousThreshold != 20 {
		t.Errorf("SuspiciousThreshold = %d, want 20", rs.SuspiciousThreshold)
	}

	weights := map[string]int{
		WeightIPInURL:            8,
		WeightPunycode:           5,
		WeightSuspiciousTLD:      4,
		WeightAtSymbol:           5,
		WeightSuspiciousKeyword:  3,
		WeightNoHTTPS:            0,
		WeightDNSMissing:         6,
		WeightDomainTooNew:       4,
		WeightExternalFormAction: 8,
		WeightPasswordOverHTTP:   10,
	}
	for key, want := range weights {
		if got := rs.Weight(key); got != want {
			t.Errorf("Weight(%s) = %d, want %d", key, got, want)
		}
	}

	if rs.Weight("no_such_key") != 0 {
		t.Errorf("unknown weight key should contribute 0")
	}
	if !rs.SuspiciousTLDs["xyz"] {
		t.Errorf("expected 'xyz' in suspicious TLD set")
	}
	if !rs.LegitimateTLDs["com"] {
		t.Errorf("expected 'com' in legitimate TLD set")
	}
	if len(rs.TrustedDomains) == 0 || len(rs.TrustedPatterns) == 0 {
		t.Fatalf("trust tables must not be empty")
	}
	if len(rs.ObfuscationHints) == 0 || len(rs.RedirectHints) == 0 || len(rs.RightClickHints) == 0 {
		t.Fatalf("script hint families must not be empty")
	}
}

func TestHintPatternsAreCaseInsensitive(t *testing.T) {
	rs := Default()
	matched := false
	for _, re := range rs.ObfuscationHints {
		if re.MatchString("EVAL (x)") {
			matched = true
			break
		}
	}
	if !matched {
		t.Errorf("expected an obfuscation hint to match 'EVAL (x)'")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	rs, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if rs.PhishingThreshold != 35 {
		t.Errorf("missing file should yield defaults")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	body := `{
		"weights": {"ip_in_url": 12},
		"phishingThreshold": 50,
		"suspiciousTlds": ["test"],
		"suspiciousKeywords": ["verify-now"]
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	rs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rs.Weight(WeightIPInURL) != 12 {
		t.Errorf("Weight(ip_in_url) = %d, want override 12", rs.Weight(WeightIPInURL))
	}
	if rs.Weight(WeightAtSymbol) != 5 {
		t.Errorf("unlisted weights should keep defaults")
	}
	if rs.PhishingThreshold != 50 {
		t.Errorf("PhishingThreshold = %d, want 50", rs.PhishingThreshold)
	}
	// Listed tables replace wholesale.
	if !rs.SuspiciousTLDs["test"] || rs.SuspiciousTLDs["xyz"] {
		t.Errorf("suspiciousTlds override should replace the default set")
	}
	if len(rs.SuspiciousKeywords) != 1 || rs.SuspiciousKeywords[0] != "verify-now" {
		t.Errorf("suspiciousKeywords override should replace the default list")
	}
	// Omitted tables keep defaults.
	if !rs.TrustedDomains["google.com"] {
		t.Errorf("omitted trustedDomains should keep defaults")
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	badJSON := filepath.Join(dir, "bad.json")
	os.WriteFile(badJSON, []byte("{not json"), 0644)
	if _, err := Load(badJSON); err == nil {
		t.Errorf("expected error for malformed JSON")
	}

	badPattern := filepath.Join(dir, "pattern.json")
	os.WriteFile(badPattern, []byte(`{"trustedPatterns": ["("]}`), 0644)
	if _, err := Load(badPattern); err == nil {
		t.Errorf("expected error for uncompilable pattern")
	}

	negWeight := filepath.Join(dir, "neg.json")
	os.WriteFile(negWeight, []byte(`{"weights": {"ip_in_url": -1}}`), 0644)
	if _, err := Load(negWeight); err == nil {
		t.Errorf("expected error for negative weight")
	}
}

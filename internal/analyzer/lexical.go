package analyzer

import (
	"fmt"
	"net"
	"strings"
	"unicode"

	"github.com/phishscan/phishscan/backend/internal/ruleset"
	"github.com/phishscan/phishscan/backend/internal/urlinfo"
)

const (
	longURLThreshold = 180
	manyLabelCount   = 6
	manyHyphenCount  = 4
	punycodePrefix   = "xn--"
)

// lexicalFindings runs the pure string checks. No I/O, deterministic, safe on
// arbitrary input.
func lexicalFindings(norm urlinfo.NormalizedURL, parts urlinfo.Parts, rules *ruleset.Ruleset) []Finding {
	var findings []Finding
	host := strings.ToLower(norm.Host)

	if host != "" && net.ParseIP(host) != nil {
		findings = append(findings, Finding{
			Severity:    SeverityMedium,
			Description: "URL uses a raw IP address instead of a hostname",
			Weight:      rules.Weight(ruleset.WeightIPInURL),
			Evidence:    map[string]string{"host": host},
		})
	}

	if strings.HasPrefix(host, punycodePrefix) || strings.Contains(host, "."+punycodePrefix) {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: "Hostname contains punycode-encoded labels",
			Weight:      rules.Weight(ruleset.WeightPunycode),
			Evidence:    map[string]string{"host": norm.Host},
		})
	}

	if containsNonASCII(norm.Host) {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: "Hostname contains non-ASCII characters that may imitate a trusted name",
			Weight:      rules.Weight(ruleset.WeightUnicodeHomoglyphs),
			Evidence:    map[string]string{"host": norm.Host},
		})
	}

	if labels := strings.Count(host, ".") + 1; host != "" && labels >= manyLabelCount {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: "Hostname has an unusually deep subdomain chain",
			Weight:      rules.Weight(ruleset.WeightTooManyLabels),
			Evidence:    map[string]string{"host": host, "labels": fmt.Sprintf("%d", labels)},
		})
	}

	if tld := parts.TLD(); tld != "" && rules.SuspiciousTLDs[tld] && !rules.LegitimateTLDs[tld] {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: fmt.Sprintf("Top-level domain '.%s' is frequently abused", tld),
			Weight:      rules.Weight(ruleset.WeightSuspiciousTLD),
			Evidence:    map[string]string{"tld": tld},
		})
	}

	if len(norm.Canonical) > longURLThreshold {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: "URL is unusually long",
			Weight:      rules.Weight(ruleset.WeightURLLength),
			Evidence:    map[string]string{"length": fmt.Sprintf("%d", len(norm.Canonical))},
		})
	}

	if strings.Contains(norm.Canonical, "@") {
		findings = append(findings, Finding{
			Severity:    SeverityMedium,
			Description: "URL contains an '@', which can hide the real destination",
			Weight:      rules.Weight(ruleset.WeightAtSymbol),
		})
	}

	if strings.Contains(norm.PathQuery, "//") {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: "URL path contains a redundant '//'",
			Weight:      rules.Weight(ruleset.WeightDoubleSlash),
		})
	}

	if hyphens := strings.Count(host, "-"); hyphens >= manyHyphenCount {
		findings = append(findings, Finding{
			Severity:    SeverityLow,
			Description: "Hostname contains many hyphens",
			Weight:      rules.Weight(ruleset.WeightManyHyphens),
			Evidence:    map[string]string{"hyphens": fmt.Sprintf("%d", hyphens)},
		})
	}

	// First matching keyword only; one bait phrase is as telling as five.
	lowerURL := strings.ToLower(norm.Canonical)
	for _, keyword := range rules.SuspiciousKeywords {
		if strings.Contains(lowerURL, strings.ToLower(keyword)) {
			findings = append(findings, Finding{
				Severity:    SeverityLow,
				Description: fmt.Sprintf("URL contains the bait phrase '%s'", keyword),
				Weight:      rules.Weight(ruleset.WeightSuspiciousKeyword),
				Evidence:    map[string]string{"keyword": keyword},
			})
			break
		}
	}

	return findings
}

func containsNonASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

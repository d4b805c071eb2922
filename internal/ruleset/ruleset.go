// Package ruleset holds the heuristic tables driving the analysis pipeline:
// signal weights, verdict thresholds, TLD and keyword lists, the trust
// allow-list, brand hints, and script pattern families. A Ruleset is built
// once at startup and shared read-only across analyses.
package ruleset

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
)

// Weight table keys. Every triggered finding contributes the weight stored
// under its key; weights of zero still produce visibility findings.
const (
	WeightIPInURL           = "ip_in_url"
	WeightPunycode          = "punycode"
	WeightUnicodeHomoglyphs = "unicode_homoglyphs"
	WeightTooManyLabels     = "too_many_subdomains"
	WeightSuspiciousTLD     = "suspicious_tld"
	WeightURLLength         = "url_length"
	WeightAtSymbol          = "at_symbol"
	WeightDoubleSlash       = "double_slash"
	WeightManyHyphens       = "many_hyphens"
	WeightSuspiciousKeyword = "suspicious_keywords"

	WeightNoHTTPS           = "no_https"
	WeightWeakTLS           = "weak_tls"
	WeightCertShortValidity = "cert_short_validity"
	WeightCertExpiringSoon  = "cert_expiring_soon"

	WeightDNSMissing   = "dns_missing"
	WeightDomainTooNew = "domain_too_new"

	WeightExternalFavicon    = "external_favicon"
	WeightExternalFormAction = "external_form_action"
	WeightMailtoExfil        = "mailto_exfil"
	WeightPasswordOverHTTP   = "password_over_http"
	WeightManyExternalHosts  = "many_external_scripts"
	WeightManyIframes        = "many_iframes"
	WeightObfuscation        = "obfuscation"
	WeightRedirectJS         = "redirect_js"
	WeightRightClickBlock    = "rightclick_block"
	WeightBrandTitleMismatch = "brand_title_mismatch"
)

// Ruleset is the compiled, immutable form used by the pipeline.
type Ruleset struct {
	Weights map[string]int

	PhishingThreshold   int
	SuspiciousThreshold int

	SuspiciousTLDs map[string]bool
	LegitimateTLDs map[string]bool

	TrustedDomains  map[string]bool
	TrustedPatterns []*regexp.Regexp

	SuspiciousKeywords []string
	BrandHints         []string

	ObfuscationHints []*regexp.Regexp
	RedirectHints    []*regexp.Regexp
	RightClickHints  []*regexp.Regexp
}

// rulesetJSON mirrors Ruleset for file overrides, with patterns as strings.
type rulesetJSON struct {
	Weights             map[string]int `json:"weights,omitempty"`
	PhishingThreshold   *int           `json:"phishingThreshold,omitempty"`
	SuspiciousThreshold *int           `json:"suspiciousThreshold,omitempty"`
	SuspiciousTLDs      []string       `json:"suspiciousTlds,omitempty"`
	LegitimateTLDs      []string       `json:"legitimateTlds,omitempty"`
	TrustedDomains      []string       `json:"trustedDomains,omitempty"`
	TrustedPatterns     []string       `json:"trustedPatterns,omitempty"`
	SuspiciousKeywords  []string       `json:"suspiciousKeywords,omitempty"`
	BrandHints          []string       `json:"brandHints,omitempty"`
	ObfuscationHints    []string       `json:"obfuscationHints,omitempty"`
	RedirectHints       []string       `json:"redirectHints,omitempty"`
	RightClickHints     []string       `json:"rightClickHints,omitempty"`
}

var defaultWeights = map[string]int{
	WeightIPInURL:           8,
	WeightPunycode:          5,
	WeightUnicodeHomoglyphs: 5,
	WeightTooManyLabels:     2,
	WeightSuspiciousTLD:     4,
	WeightURLLength:         2,
	WeightAtSymbol:          5,
	WeightDoubleSlash:       2,
	WeightManyHyphens:       2,
	WeightSuspiciousKeyword: 3,

	WeightNoHTTPS:           0,
	WeightWeakTLS:           0,
	WeightCertShortValidity: 0,
	WeightCertExpiringSoon:  0,

	WeightDNSMissing:   6,
	WeightDomainTooNew: 4,

	WeightExternalFavicon:    2,
	WeightExternalFormAction: 8,
	WeightMailtoExfil:        5,
	WeightPasswordOverHTTP:   10,
	WeightManyExternalHosts:  3,
	WeightManyIframes:        2,
	WeightObfuscation:        4,
	WeightRedirectJS:         2,
	WeightRightClickBlock:    2,
	WeightBrandTitleMismatch: 3,
}

var defaultSuspiciousTLDs = []string{
	"zip", "kim", "top", "work", "country", "stream", "biz", "men", "loan",
	"mom", "gq", "cf", "tk", "ml", "ga", "surf", "fit", "ltda", "cam", "bar",
	"click", "link", "xyz", "rest", "review", "date", "online", "app", "pics",
	"quest", "ryuk", "accountant", "bid", "cc", "club", "cricket", "download",
	"faith", "ltd", "party", "press", "pw", "science", "win",
}

var defaultLegitimateTLDs = []string{
	"com", "org", "net", "edu", "gov", "mil", "io", "ai", "co", "uk", "us",
	"ca", "au", "nz", "de", "fr", "es", "it", "nl", "se", "no", "dk", "fi",
	"ie", "at", "ch", "be", "lu", "pt", "gr", "hu", "pl", "cz", "sk", "si",
	"hr", "ba", "rs", "me", "al", "mk", "mt", "cy", "li", "is", "ee", "lv", "lt",
}

var defaultTrustedDomains = []string{
	"google.com", "facebook.com", "apple.com", "microsoft.com", "amazon.com",
	"netflix.com", "twitter.com", "instagram.com", "linkedin.com",
	"github.com", "oracle.com", "whatsapp.com", "signal.org", "telegram.org",
	"discord.com", "slack.com", "dropbox.com", "box.com", "adobe.com",
	"salesforce.com", "ibm.com", "intel.com", "nvidia.com", "amd.com",
	"paypal.com", "stripe.com", "visa.com", "mastercard.com",
	"americanexpress.com", "wikipedia.org", "mozilla.org", "wordpress.org",
	"archive.org", "berkeley.edu", "stanford.edu", "mit.edu", "harvard.edu",
	"yale.edu", "princeton.edu", "columbia.edu", "upenn.edu", "cornell.edu",
	"brown.edu", "dartmouth.edu", "ucla.edu", "ucsd.edu", "ucb.edu",
	"umich.edu", "uiuc.edu", "utexas.edu",
}

var defaultTrustedPatterns = []string{
	`^[a-zA-Z0-9-]+\.oracle\.com$`,
	`^[a-zA-Z0-9-]+\.whatsapp\.com$`,
	`^[a-zA-Z0-9-]+\.google\.com$`,
	`^[a-zA-Z0-9-]+\.microsoft\.com$`,
	`^[a-zA-Z0-9-]+\.apple\.com$`,
	`^[a-zA-Z0-9-]+\.amazon\.com$`,
	`^[a-zA-Z0-9-]+\.github\.com$`,
	`^[a-zA-Z0-9-]+\.edu$`,
	`^[a-zA-Z0-9-]+\.[a-zA-Z0-9-]+\.edu$`,
	`^[a-zA-Z0-9-]+\.edu\.[a-zA-Z]{2,}$`,
	`^[a-zA-Z0-9-]+\.ac\.[a-zA-Z]{2,}$`,
	`^[a-zA-Z0-9-]+\.gov$`,
	`^[a-zA-Z0-9-]+\.gov\.[a-zA-Z]{2,}$`,
	`^[a-zA-Z0-9-]+\.org$`,
	`^[a-zA-Z0-9-]+\.mil$`,
}

var defaultSuspiciousKeywords = []string{
	"login-secure", "verify-account", "update-details", "secure-account",
	"bank-login", "wallet-access", "pay-now", "password-reset",
	"support-ticket", "helpdesk-verify", "unlock-account", "billing-update",
	"confirm-details", "re-activate-now", "gift-card", "free-offer",
	"prize-winner", "bonus-claim",
}

var defaultBrandHints = []string{
	"Apple", "Microsoft", "Google", "Facebook", "Instagram", "Amazon",
	"Netflix", "PayPal", "Adobe", "LinkedIn", "Bank",
}

var defaultObfuscationHints = []string{
	`\beval\s*\(`, `Function\s*\(`, `atob\s*\(`, `unescape\s*\(`,
	`fromCharCode\s*\(`, `document\.write\s*\(`, `\.replace\s*\(/.*?/`,
	`obfuscate`, `packer`, `window\[`,
}

var defaultRedirectHints = []string{
	`window\.location`, `location\.href`, `location\.replace`, `top\.location`,
}

var defaultRightClickHints = []string{
	`contextmenu`, `document\.oncontextmenu`, `return\s+false;`,
}

// Default returns the built-in ruleset.
func Default() *Ruleset {
	rs, err := build(rulesetJSON{})
	if err != nil {
		// Built-in patterns are constants; a compile failure is a programming
		// error, not a runtime condition.
		panic(err)
	}
	return rs
}

// Load reads a ruleset override file. A missing file yields the defaults;
// listed fields replace their default table wholesale, omitted fields keep
// the defaults.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Ruleset: override file '%s' not found, using built-in rules", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read ruleset file '%s': %w", path, err)
	}

	var overrides rulesetJSON
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("error unmarshalling ruleset file '%s': %w", path, err)
	}
	rs, err := build(overrides)
	if err != nil {
		return nil, fmt.Errorf("invalid ruleset file '%s': %w", path, err)
	}
	log.Printf("Ruleset: loaded overrides from '%s'", path)
	return rs, nil
}

func build(o rulesetJSON) (*Ruleset, error) {
	rs := &Ruleset{
		Weights:             make(map[string]int, len(defaultWeights)),
		PhishingThreshold:   35,
		SuspiciousThreshold: 20,
		SuspiciousKeywords:  defaultSuspiciousKeywords,
		BrandHints:          defaultBrandHints,
	}
	for k, v := range defaultWeights {
		rs.Weights[k] = v
	}
	for k, v := range o.Weights {
		if v < 0 {
			return nil, fmt.Errorf("weight %q is negative", k)
		}
		rs.Weights[k] = v
	}
	if o.PhishingThreshold != nil {
		rs.PhishingThreshold = *o.PhishingThreshold
	}
	if o.SuspiciousThreshold != nil {
		rs.SuspiciousThreshold = *o.SuspiciousThreshold
	}
	if o.SuspiciousKeywords != nil {
		rs.SuspiciousKeywords = o.SuspiciousKeywords
	}
	if o.BrandHints != nil {
		rs.BrandHints = o.BrandHints
	}

	rs.SuspiciousTLDs = toSet(pick(o.SuspiciousTLDs, defaultSuspiciousTLDs))
	rs.LegitimateTLDs = toSet(pick(o.LegitimateTLDs, defaultLegitimateTLDs))
	rs.TrustedDomains = toSet(pick(o.TrustedDomains, defaultTrustedDomains))

	var err error
	if rs.TrustedPatterns, err = compileAll(pick(o.TrustedPatterns, defaultTrustedPatterns), false); err != nil {
		return nil, err
	}
	if rs.ObfuscationHints, err = compileAll(pick(o.ObfuscationHints, defaultObfuscationHints), true); err != nil {
		return nil, err
	}
	if rs.RedirectHints, err = compileAll(pick(o.RedirectHints, defaultRedirectHints), true); err != nil {
		return nil, err
	}
	if rs.RightClickHints, err = compileAll(pick(o.RightClickHints, defaultRightClickHints), true); err != nil {
		return nil, err
	}
	return rs, nil
}

// Weight looks up a weight by key; unknown keys contribute nothing.
func (rs *Ruleset) Weight(key string) int {
	return rs.Weights[key]
}

func pick(override, fallback []string) []string {
	if override != nil {
		return override
	}
	return fallback
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func compileAll(patterns []string, caseInsensitive bool) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		src := p
		if caseInsensitive {
			src = "(?i)" + p
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern '%s': %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

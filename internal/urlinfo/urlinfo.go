// Package urlinfo canonicalizes raw URL strings and splits hostnames into
// registrable domain, subdomain, and public suffix.
package urlinfo

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// NormalizedURL is the canonical form of a raw input string. Canonical always
// carries an explicit scheme; Fragment content is discarded.
type NormalizedURL struct {
	Canonical string
	Scheme    string
	Host      string
	PathQuery string
}

// Parts is the public-suffix-aware split of a hostname. All fields are
// lower-cased. When the host carries no recognized suffix, Domain holds the
// whole host and Suffix is empty.
type Parts struct {
	Domain    string
	Subdomain string
	Suffix    string
}

// Normalize canonicalizes a raw string into a NormalizedURL. It never fails:
// unparseable input degrades to a best-effort canonical string with the
// default scheme prepended and no host.
func Normalize(raw string) NormalizedURL {
	trimmed := strings.TrimSpace(raw)
	if !hasHTTPScheme(trimmed) {
		trimmed = "http://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return NormalizedURL{Canonical: trimmed, Scheme: "http"}
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	scheme := strings.ToLower(parsed.Scheme)
	parsed.Scheme = scheme

	pathQuery := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		pathQuery += "?" + parsed.RawQuery
	}

	return NormalizedURL{
		Canonical: parsed.String(),
		Scheme:    scheme,
		Host:      parsed.Hostname(),
		PathQuery: pathQuery,
	}
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// SplitURL extracts domain parts from any URL-ish string. Strings without a
// host component (relative references) yield empty Parts.
func SplitURL(raw string) Parts {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Parts{}
	}
	if !hasHTTPScheme(raw) && !strings.HasPrefix(raw, "//") {
		return Parts{}
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return Parts{}
	}
	return SplitHost(parsed.Hostname())
}

// SplitHost splits a bare hostname into registrable domain, subdomain, and
// suffix. IP literals and unrecognized hosts come back with Domain set to the
// whole (lower-cased) host.
func SplitHost(host string) Parts {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if host == "" {
		return Parts{}
	}
	// The public-suffix wildcard rule would split IP literals apart.
	if net.ParseIP(host) != nil {
		return Parts{Domain: host}
	}

	ascii := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		ascii = converted
	}

	suffix, _ := publicsuffix.PublicSuffix(ascii)
	if suffix == "" || suffix == ascii {
		return Parts{Domain: host}
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(ascii)
	if err != nil {
		return Parts{Domain: host, Suffix: suffix}
	}

	sub := strings.TrimSuffix(ascii, etld1)
	sub = strings.TrimSuffix(sub, ".")
	return Parts{Domain: etld1, Subdomain: sub, Suffix: suffix}
}

// TLD returns the last label of the suffix ("co.uk" -> "uk"). Falls back to
// the last label of the domain when no suffix was recognized.
func (p Parts) TLD() string {
	source := p.Suffix
	if source == "" {
		source = p.Domain
	}
	labels := strings.Split(source, ".")
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1]
}

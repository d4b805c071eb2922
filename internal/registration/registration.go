// Package registration looks up domain registration metadata. RDAP is tried
// first (registry endpoint by TLD, falling back to the rdap.org bootstrap),
// then classic WHOIS over port 43. Both run under one explicit deadline.
// Everything here is best-effort: any failure means "age unknown".
package registration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const maxRDAPBodyBytes = 1 << 20

var directRDAPEndpoints = map[string]string{
	"com":    "https://rdap.verisign.com/com/v1/",
	"net":    "https://rdap.verisign.com/net/v1/",
	"org":    "https://rdap.publicinterestregistry.net/rdap/",
	"io":     "https://rdap.nic.io/",
	"dev":    "https://rdap.nic.google/",
	"app":    "https://rdap.nic.google/",
	"uk":     "https://rdap.nominet.uk/uk/",
	"eu":     "https://rdap.eu/",
	"co":     "https://rdap.nic.co/",
	"me":     "https://rdap.nic.me/",
	"ai":     "https://rdap.nic.ai/",
	"xyz":    "https://rdap.centralnic.com/xyz/",
	"top":    "https://rdap.nic.top/",
	"online": "https://rdap.centralnic.com/online/",
	"site":   "https://rdap.centralnic.com/site/",
	"info":   "https://rdap.afilias.net/rdap/info/",
	"biz":    "https://rdap.nic.biz/",
}

var whoisServers = map[string]string{
	"com": "whois.verisign-grs.com", "net": "whois.verisign-grs.com",
	"org": "whois.pir.org", "io": "whois.nic.io",
	"co": "whois.nic.co", "me": "whois.nic.me",
	"uk": "whois.nic.uk", "us": "whois.nic.us",
	"ca": "whois.cira.ca", "au": "whois.auda.org.au",
	"de": "whois.denic.de", "fr": "whois.nic.fr",
	"nl": "whois.sidn.nl", "eu": "whois.eu",
	"xyz": "whois.nic.xyz", "top": "whois.nic.top",
	"info": "whois.afilias.net", "biz": "whois.nic.biz",
	"online": "whois.nic.online", "site": "whois.nic.site",
}

var creationDateRe = regexp.MustCompile(`(?im)^\s*(?:creation date|created|created on|registered on|registration time|domain registration date)\s*[:.]*\s*(.+)$`)

// creationDateLayouts covers the formats registries actually emit.
var creationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"02.01.2006",
}

// Record is the registration metadata relevant to analysis.
type Record struct {
	CreatedAt time.Time
	Source    string // "RDAP" or "WHOIS"
}

// Lookup queries registration metadata for a registrable domain.
type Lookup struct {
	timeout    time.Duration
	httpClient *http.Client
	// rdapBase overrides the per-TLD endpoint map when set (tests).
	rdapBase string
}

func New(timeout time.Duration) *Lookup {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Lookup{
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Creation returns the domain's creation date, trying RDAP then WHOIS. The
// whole lookup observes the configured deadline.
func (l *Lookup) Creation(ctx context.Context, domain string) (*Record, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || !strings.Contains(domain, ".") {
		return nil, fmt.Errorf("not a registrable domain: %q", domain)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if created, err := l.rdapCreation(lookupCtx, domain); err == nil {
		return &Record{CreatedAt: created, Source: "RDAP"}, nil
	}
	created, err := l.whoisCreation(lookupCtx, domain)
	if err != nil {
		return nil, err
	}
	return &Record{CreatedAt: created, Source: "WHOIS"}, nil
}

type rdapResponse struct {
	Events []struct {
		EventAction string `json:"eventAction"`
		EventDate   string `json:"eventDate"`
	} `json:"events"`
	ErrorCode int `json:"errorCode,omitempty"`
}

func (l *Lookup) rdapCreation(ctx context.Context, domain string) (time.Time, error) {
	endpoint := l.rdapBase
	if endpoint == "" {
		endpoint = directRDAPEndpoints[lastLabel(domain)]
	}
	if endpoint == "" {
		endpoint = "https://rdap.org/"
	}
	rdapURL := strings.TrimRight(endpoint, "/") + "/domain/" + domain

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rdapURL, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("RDAP: create request failed for %s: %w", domain, err)
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("RDAP: request failed for %s: %w", domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("RDAP: %s returned status %d", rdapURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRDAPBodyBytes))
	if err != nil {
		return time.Time{}, fmt.Errorf("RDAP: read body failed for %s: %w", domain, err)
	}

	var data rdapResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return time.Time{}, fmt.Errorf("RDAP: decode JSON failed for %s: %w", domain, err)
	}
	if data.ErrorCode != 0 {
		return time.Time{}, fmt.Errorf("RDAP: error response %d for %s", data.ErrorCode, domain)
	}

	for _, event := range data.Events {
		if strings.EqualFold(event.EventAction, "registration") {
			if created, ok := ParseCreationDate(event.EventDate); ok {
				return created, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("RDAP: no registration event for %s", domain)
}

func (l *Lookup) whoisCreation(ctx context.Context, domain string) (time.Time, error) {
	server, ok := whoisServers[lastLabel(domain)]
	if !ok {
		return time.Time{}, fmt.Errorf("WHOIS: no server known for %s", domain)
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", server+":43")
	if err != nil {
		return time.Time{}, fmt.Errorf("WHOIS: dial %s failed: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(l.timeout))
	}

	if _, err := conn.Write([]byte(domain + "\r\n")); err != nil {
		return time.Time{}, fmt.Errorf("WHOIS: query write failed: %w", err)
	}

	var buf [8192]byte
	var response []byte
	for {
		n, err := conn.Read(buf[:])
		if n > 0 {
			response = append(response, buf[:n]...)
		}
		if err != nil || len(response) > 32768 {
			break
		}
	}

	created, ok := parseWhoisCreation(string(response))
	if !ok {
		return time.Time{}, fmt.Errorf("WHOIS: no parseable creation date for %s", domain)
	}
	return created, nil
}

// parseWhoisCreation picks the first creation-date line that parses. Some
// registries repeat the field; the first value wins.
func parseWhoisCreation(output string) (time.Time, bool) {
	for _, match := range creationDateRe.FindAllStringSubmatch(output, -1) {
		if created, ok := ParseCreationDate(strings.TrimSpace(match[1])); ok {
			return created, true
		}
	}
	return time.Time{}, false
}

// ParseCreationDate tries the known registry date layouts.
func ParseCreationDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range creationDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	// Registries append commentary after the date; retry with the first token.
	if fields := strings.Fields(value); len(fields) > 1 {
		for _, layout := range creationDateLayouts {
			if t, err := time.Parse(layout, fields[0]); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// AgeDays is the whole-day age of a creation date, floored at zero.
func AgeDays(created, now time.Time) int {
	days := int(now.Sub(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func lastLabel(domain string) string {
	labels := strings.Split(domain, ".")
	return labels[len(labels)-1]
}

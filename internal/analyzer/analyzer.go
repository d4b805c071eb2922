// Package analyzer coordinates the analysis pipeline: normalize, check the
// trust allow-list, fan out the signal collectors, then aggregate weighted
// findings into a verdict. Analyze never fails; every error path degrades to
// a report with fewer findings.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/phishscan/phishscan/backend/internal/content"
	"github.com/phishscan/phishscan/backend/internal/netprobe"
	"github.com/phishscan/phishscan/backend/internal/registration"
	"github.com/phishscan/phishscan/backend/internal/ruleset"
	"github.com/phishscan/phishscan/backend/internal/trustlist"
	"github.com/phishscan/phishscan/backend/internal/urlinfo"
)

// Penalty for a resolution chain that ends on a different registrable domain.
// Deliberately outside the weight table; it is a structural signal, not a
// tunable heuristic.
const canonicalMismatchPenalty = 3

const (
	newDomainAgeDays    = 30
	shortCertValidity   = 30 * 24 * time.Hour
	certExpiryWarning   = 7 * 24 * time.Hour
	manyExternalDomains = 8
	manyIframes         = 5
)

// Resolver resolves a hostname to addresses and canonical hostnames.
type Resolver interface {
	Resolve(ctx context.Context, host string) (*netprobe.Resolution, error)
}

// CertProber retrieves the TLS leaf certificate validity window for a host.
type CertProber interface {
	CertProbe(ctx context.Context, host string) (*netprobe.CertInfo, error)
}

// Fetcher retrieves the page at a URL, with the one-shot HTTPS upgrade retry.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string) (*content.FetchResult, error)
}

// RegistrationLookup returns a domain's creation record.
type RegistrationLookup interface {
	Creation(ctx context.Context, domain string) (*registration.Record, error)
}

// Deps are the external capabilities one Engine fans out to. Now may be nil
// and defaults to time.Now.
type Deps struct {
	Resolver     Resolver
	CertProber   CertProber
	Fetcher      Fetcher
	Registration RegistrationLookup
	Now          func() time.Time
}

// Engine runs analyses. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	rules   *ruleset.Ruleset
	trust   *trustlist.Matcher
	scanner *content.Scanner
	deps    Deps
}

func New(rules *ruleset.Ruleset, deps Deps) *Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		rules:   rules,
		trust:   trustlist.New(rules),
		scanner: content.NewScanner(rules),
		deps:    deps,
	}
}

type networkResult struct {
	findings []Finding
	resolves bool
}

type registrationResult struct {
	findings []Finding
	ageDays  *int
}

type contentResult struct {
	findings  []Finding
	evidence  SourceEvidence
	usedHTTPS bool
	fetched   bool
}

// Analyze inspects rawURL and always returns a report, for any input. A
// trusted domain short-circuits every collector. Collector panics degrade to
// missing signals; a panic in the pipeline itself degrades to an empty report.
func (e *Engine) Analyze(ctx context.Context, rawURL string) (report *Report) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Analyzer: recovered while analyzing %q: %v", rawURL, r)
			report = e.emptyReport(rawURL)
		}
	}()

	norm := urlinfo.Normalize(rawURL)
	parts := urlinfo.SplitHost(norm.Host)

	report = &Report{
		InputURL:      rawURL,
		NormalizedURL: norm.Canonical,
		Host:          norm.Host,
		Domain:        parts.Domain,
		Suffix:        parts.Suffix,
		Verdict:       VerdictSafe,
		Findings:      []Finding{},
		Context:       Context{DNSResolves: true, UsesHTTPS: norm.Scheme == "https"},
		AnalyzedAt:    e.deps.Now().UTC(),
	}

	if trusted, rule := e.trust.Match(parts.Domain); trusted {
		report.Context.TrustedDomain = true
		log.Printf("Analyzer: %s matched trust rule %q, skipping collectors", parts.Domain, rule)
		return report
	}

	lexical := lexicalFindings(norm, parts, e.rules)

	var (
		wg      sync.WaitGroup
		network networkResult
		reg     registrationResult
		page    contentResult
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer recoverCollector("network", &rawURL)
		network = e.collectNetwork(ctx, norm, parts)
	}()
	go func() {
		defer wg.Done()
		defer recoverCollector("registration", &rawURL)
		reg = e.collectRegistration(ctx, parts.Domain)
	}()
	go func() {
		defer wg.Done()
		defer recoverCollector("content", &rawURL)
		page = e.collectContent(ctx, norm, parts)
	}()
	wg.Wait()

	report.Findings = append(report.Findings, lexical...)
	report.Findings = append(report.Findings, network.findings...)
	report.Findings = append(report.Findings, reg.findings...)
	report.Findings = append(report.Findings, page.findings...)

	report.Context.DNSResolves = network.resolves
	report.Context.DomainAgeDays = reg.ageDays
	if page.fetched && page.usedHTTPS {
		report.Context.UsesHTTPS = true
	}
	report.Evidence = page.evidence

	for _, finding := range report.Findings {
		report.RiskScore += finding.Weight
	}
	report.Verdict = e.verdict(report.RiskScore)
	return report
}

func (e *Engine) verdict(score int) string {
	switch {
	case score >= e.rules.PhishingThreshold:
		return VerdictPhishing
	case score >= e.rules.SuspiciousThreshold:
		return VerdictSuspicious
	default:
		return VerdictSafe
	}
}

func (e *Engine) collectNetwork(ctx context.Context, norm urlinfo.NormalizedURL, parts urlinfo.Parts) networkResult {
	res := networkResult{resolves: true}

	resolution, err := e.deps.Resolver.Resolve(ctx, norm.Host)
	if err != nil {
		if ctx.Err() != nil {
			// Abandoned lookup, not a DNS answer.
			return res
		}
		res.resolves = false
		res.findings = append(res.findings, Finding{
			Severity:    SeverityHigh,
			Description: "Hostname does not resolve",
			Weight:      e.rules.Weight(ruleset.WeightDNSMissing),
			Evidence:    map[string]string{"host": norm.Host, "error": err.Error()},
		})
	} else {
		for _, canonical := range resolution.CanonicalHosts {
			if net.ParseIP(canonical) != nil {
				continue
			}
			cparts := urlinfo.SplitHost(canonical)
			if cparts.Domain != "" && cparts.Domain != parts.Domain {
				res.findings = append(res.findings, Finding{
					Severity:    SeverityMedium,
					Description: fmt.Sprintf("Hostname resolves through an unrelated domain (%s)", cparts.Domain),
					Weight:      canonicalMismatchPenalty,
					Evidence:    map[string]string{"canonicalHost": canonical},
				})
			}
		}
	}

	if norm.Scheme != "https" {
		// Zero weight, kept for visibility in the report.
		res.findings = append(res.findings, Finding{
			Severity:    SeverityHigh,
			Description: "Page is not served over HTTPS",
			Weight:      e.rules.Weight(ruleset.WeightNoHTTPS),
		})
		return res
	}

	cert, err := e.deps.CertProber.CertProbe(ctx, norm.Host)
	if err != nil {
		if ctx.Err() != nil {
			return res
		}
		res.findings = append(res.findings, Finding{
			Severity:    SeverityHigh,
			Description: "TLS certificate could not be validated",
			Weight:      e.rules.Weight(ruleset.WeightWeakTLS),
			Evidence:    map[string]string{"error": err.Error()},
		})
		return res
	}

	now := e.deps.Now()
	if cert.NotAfter.Sub(cert.NotBefore) < shortCertValidity {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityLow,
			Description: "TLS certificate has an unusually short validity window",
			Weight:      e.rules.Weight(ruleset.WeightCertShortValidity),
			Evidence: map[string]string{
				"notBefore": cert.NotBefore.Format(time.RFC3339),
				"notAfter":  cert.NotAfter.Format(time.RFC3339),
			},
		})
	}
	if remaining := cert.NotAfter.Sub(now); remaining >= 0 && remaining < certExpiryWarning {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityMedium,
			Description: "TLS certificate expires within days",
			Weight:      e.rules.Weight(ruleset.WeightCertExpiringSoon),
			Evidence:    map[string]string{"notAfter": cert.NotAfter.Format(time.RFC3339)},
		})
	}
	return res
}

func (e *Engine) collectRegistration(ctx context.Context, domain string) registrationResult {
	var res registrationResult
	if domain == "" {
		return res
	}

	record, err := e.deps.Registration.Creation(ctx, domain)
	if err != nil {
		log.Printf("Analyzer: registration lookup for %s failed: %v", domain, err)
		return res
	}

	age := registration.AgeDays(record.CreatedAt, e.deps.Now())
	res.ageDays = &age
	if age < newDomainAgeDays {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("Domain was registered only %d day(s) ago", age),
			Weight:      e.rules.Weight(ruleset.WeightDomainTooNew),
			Evidence: map[string]string{
				"createdAt": record.CreatedAt.Format(time.RFC3339),
				"source":    record.Source,
			},
		})
	}
	return res
}

func (e *Engine) collectContent(ctx context.Context, norm urlinfo.NormalizedURL, parts urlinfo.Parts) contentResult {
	var res contentResult

	result, err := e.deps.Fetcher.Fetch(ctx, norm.Canonical)
	if err != nil {
		log.Printf("Analyzer: content fetch for %s failed: %v", norm.Canonical, err)
		return res
	}
	if result.StatusCode != 200 {
		log.Printf("Analyzer: content fetch for %s returned status %d, skipping content checks", norm.Canonical, result.StatusCode)
		return res
	}

	evidence, err := e.scanner.Scan(result.Body, parts.Domain)
	if err != nil {
		log.Printf("Analyzer: markup scan for %s failed: %v", norm.Canonical, err)
		return res
	}

	res.fetched = true
	res.usedHTTPS = result.UsedHTTPS
	res.evidence = SourceEvidence{
		PageTitle:           evidence.Title,
		ExternalFavicon:     evidence.FaviconDomain != "",
		ExternalDomains:     evidence.ExternalDomains,
		ExternalFormActions: evidence.ExternalFormActions,
		MailtoLinks:         evidence.MailtoParamLinks,
		ObfuscatedScripts:   evidence.ObfuscationExcerpts,
		RedirectScripts:     evidence.RedirectExcerpts,
		RightClickBlocked:   len(evidence.RightClickExcerpts) > 0,
	}

	if brand := mismatchedBrand(evidence.Title, parts.Domain, e.rules.BrandHints); brand != "" {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("Page title mentions %s but the domain does not", brand),
			Weight:      e.rules.Weight(ruleset.WeightBrandTitleMismatch),
			Evidence:    map[string]string{"title": evidence.Title},
		})
	}

	if evidence.FaviconDomain != "" {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityLow,
			Description: "Favicon is loaded from a different domain",
			Weight:      e.rules.Weight(ruleset.WeightExternalFavicon),
			Evidence:    map[string]string{"faviconDomain": evidence.FaviconDomain},
		})
	}

	// One finding per form; a page full of external forms scores accordingly.
	for _, action := range evidence.ExternalFormActions {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityHigh,
			Description: "Form submits to an external domain",
			Weight:      e.rules.Weight(ruleset.WeightExternalFormAction),
			Evidence:    map[string]string{"action": action},
		})
	}

	for _, link := range evidence.MailtoParamLinks {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityMedium,
			Description: "Mailto link carries prefilled parameters",
			Weight:      e.rules.Weight(ruleset.WeightMailtoExfil),
			Evidence:    map[string]string{"href": link},
		})
	}

	if evidence.PasswordInputCount > 0 && !result.UsedHTTPS {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityHigh,
			Description: "Password field served over unencrypted HTTP",
			Weight:      e.rules.Weight(ruleset.WeightPasswordOverHTTP),
			Evidence:    map[string]string{"passwordInputs": fmt.Sprintf("%d", evidence.PasswordInputCount)},
		})
	}

	if len(evidence.ExternalDomains) > manyExternalDomains {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityLow,
			Description: "Page pulls resources from many unrelated domains",
			Weight:      e.rules.Weight(ruleset.WeightManyExternalHosts),
			Evidence:    map[string]string{"domains": fmt.Sprintf("%d", len(evidence.ExternalDomains))},
		})
	}

	if evidence.IframeCount > manyIframes {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityLow,
			Description: "Page embeds an unusual number of iframes",
			Weight:      e.rules.Weight(ruleset.WeightManyIframes),
			Evidence:    map[string]string{"iframes": fmt.Sprintf("%d", evidence.IframeCount)},
		})
	}

	for _, excerpt := range evidence.ObfuscationExcerpts {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityMedium,
			Description: "Inline script uses obfuscation techniques",
			Weight:      e.rules.Weight(ruleset.WeightObfuscation),
			Evidence:    map[string]string{"script": excerpt},
		})
	}
	for _, excerpt := range evidence.RedirectExcerpts {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityLow,
			Description: "Inline script rewrites the browser location",
			Weight:      e.rules.Weight(ruleset.WeightRedirectJS),
			Evidence:    map[string]string{"script": excerpt},
		})
	}
	for _, excerpt := range evidence.RightClickExcerpts {
		res.findings = append(res.findings, Finding{
			Severity:    SeverityLow,
			Description: "Inline script blocks the context menu",
			Weight:      e.rules.Weight(ruleset.WeightRightClickBlock),
			Evidence:    map[string]string{"script": excerpt},
		})
	}
	return res
}

// mismatchedBrand returns the first brand hint present in the title but
// absent from the domain.
func mismatchedBrand(title, domain string, brands []string) string {
	if title == "" {
		return ""
	}
	lowerTitle := strings.ToLower(title)
	for _, brand := range brands {
		lowerBrand := strings.ToLower(brand)
		if strings.Contains(lowerTitle, lowerBrand) && !strings.Contains(domain, lowerBrand) {
			return brand
		}
	}
	return ""
}

func (e *Engine) emptyReport(rawURL string) *Report {
	norm := urlinfo.Normalize(rawURL)
	return &Report{
		InputURL:      rawURL,
		NormalizedURL: norm.Canonical,
		Host:          norm.Host,
		Verdict:       VerdictSafe,
		Findings:      []Finding{},
		Context:       Context{DNSResolves: true, UsesHTTPS: norm.Scheme == "https"},
		AnalyzedAt:    e.deps.Now().UTC(),
	}
}

func recoverCollector(name string, rawURL *string) {
	if r := recover(); r != nil {
		log.Printf("Analyzer: %s collector panicked for %q: %v", name, *rawURL, r)
	}
}

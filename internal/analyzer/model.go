package analyzer

import "time"

// Severity ranks how strongly a finding indicates phishing.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Verdict literals. A report always carries exactly one of these.
const (
	VerdictPhishing   = "Phishing"
	VerdictSuspicious = "Suspicious"
	VerdictSafe       = "Likely safe"
)

// Finding is one triggered heuristic. Weight may be zero for findings kept
// purely for visibility. Findings are append-only within one analysis.
type Finding struct {
	Severity    Severity          `json:"severity"`
	Description string            `json:"description"`
	Weight      int               `json:"weight"`
	Evidence    map[string]string `json:"evidence,omitempty"`
}

// Context summarizes the environment the findings were collected in.
// DomainAgeDays is nil when the registration lookup failed.
type Context struct {
	DNSResolves   bool `json:"dnsResolves"`
	DomainAgeDays *int `json:"domainAgeDays"`
	UsesHTTPS     bool `json:"usesHttps"`
	TrustedDomain bool `json:"trustedDomain"`
}

// SourceEvidence is the raw page material backing the content findings.
type SourceEvidence struct {
	PageTitle           string   `json:"pageTitle,omitempty"`
	ExternalFavicon     bool     `json:"externalFavicon"`
	ExternalDomains     []string `json:"externalDomains,omitempty"`
	ExternalFormActions []string `json:"externalFormActions,omitempty"`
	MailtoLinks         []string `json:"mailtoLinks,omitempty"`
	ObfuscatedScripts   []string `json:"obfuscatedScripts,omitempty"`
	RedirectScripts     []string `json:"redirectScripts,omitempty"`
	RightClickBlocked   bool     `json:"rightClickBlocked"`
}

// Report is the complete outcome of analyzing one URL.
type Report struct {
	InputURL      string         `json:"inputUrl"`
	NormalizedURL string         `json:"normalizedUrl"`
	Host          string         `json:"host"`
	Domain        string         `json:"domain"`
	Suffix        string         `json:"suffix"`
	Verdict       string         `json:"verdict"`
	RiskScore     int            `json:"riskScore"`
	Findings      []Finding      `json:"findings"`
	Context       Context        `json:"context"`
	Evidence      SourceEvidence `json:"evidence"`
	AnalyzedAt    time.Time      `json:"analyzedAt"`
}

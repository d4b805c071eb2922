package content

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/phishscan/phishscan/backend/internal/ruleset"
	"github.com/phishscan/phishscan/backend/internal/urlinfo"
)

const scriptExcerptLimit = 100

// PageEvidence is the raw markup facts extracted from a fetched page. It
// carries no weights or severities; callers decide what each fact means.
type PageEvidence struct {
	Title string

	FaviconHref   string
	FaviconDomain string

	// ExternalFormActions holds the action attribute of every form that
	// submits to a different registrable domain, one entry per form.
	ExternalFormActions []string

	// MailtoParamLinks holds mailto anchors that smuggle data via query
	// parameters.
	MailtoParamLinks []string

	PasswordInputCount int

	// ExternalDomains is the sorted set of registrable domains referenced by
	// script src, iframe src and link href attributes, excluding the page's
	// own domain.
	ExternalDomains []string

	IframeCount int

	// One excerpt per inline script element that matched the family, so
	// repeated offenders are visible individually.
	ObfuscationExcerpts []string
	RedirectExcerpts    []string
	RightClickExcerpts  []string
}

// Scanner walks parsed HTML and extracts PageEvidence. Safe for concurrent
// use; all state lives in the per-call walk.
type Scanner struct {
	rules *ruleset.Ruleset
}

func NewScanner(rules *ruleset.Ruleset) *Scanner {
	return &Scanner{rules: rules}
}

// Scan parses body and collects markup evidence relative to pageDomain, the
// registrable domain the page was fetched from. References without an
// absolute host (relative paths) always count as same-domain.
func (s *Scanner) Scan(body []byte, pageDomain string) (*PageEvidence, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	ev := &PageEvidence{}
	externals := make(map[string]bool)
	w := &walker{rules: s.rules, pageDomain: strings.ToLower(pageDomain), ev: ev, externals: externals}
	w.walk(doc)

	for domain := range externals {
		ev.ExternalDomains = append(ev.ExternalDomains, domain)
	}
	sort.Strings(ev.ExternalDomains)
	return ev, nil
}

type walker struct {
	rules      *ruleset.Ruleset
	pageDomain string
	ev         *PageEvidence
	externals  map[string]bool
}

func (w *walker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if w.ev.Title == "" {
				w.ev.Title = strings.TrimSpace(nodeText(n))
			}
		case "link":
			w.visitLink(n)
		case "form":
			w.visitForm(n)
		case "a":
			w.visitAnchor(n)
		case "input":
			if strings.EqualFold(attr(n, "type"), "password") {
				w.ev.PasswordInputCount++
			}
		case "iframe":
			w.ev.IframeCount++
			w.noteExternal(attr(n, "src"))
		case "script":
			w.visitScript(n)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		w.walk(child)
	}
}

func (w *walker) visitLink(n *html.Node) {
	href := attr(n, "href")
	w.noteExternal(href)

	if w.ev.FaviconHref != "" || href == "" {
		return
	}
	if !strings.Contains(strings.ToLower(attr(n, "rel")), "icon") {
		return
	}
	w.ev.FaviconHref = href
	if domain := w.refDomain(href); domain != "" && domain != w.pageDomain {
		w.ev.FaviconDomain = domain
	}
}

func (w *walker) visitForm(n *html.Node) {
	action := attr(n, "action")
	if action == "" {
		return
	}
	if domain := w.refDomain(action); domain != "" && domain != w.pageDomain {
		w.ev.ExternalFormActions = append(w.ev.ExternalFormActions, action)
	}
}

func (w *walker) visitAnchor(n *html.Node) {
	href := attr(n, "href")
	if strings.HasPrefix(strings.ToLower(href), "mailto:") && strings.Contains(href, "?") {
		w.ev.MailtoParamLinks = append(w.ev.MailtoParamLinks, href)
	}
}

func (w *walker) visitScript(n *html.Node) {
	if src := attr(n, "src"); src != "" {
		w.noteExternal(src)
		return
	}

	text := strings.TrimSpace(nodeText(n))
	if text == "" {
		return
	}
	if matchesAny(w.rules.ObfuscationHints, text) {
		w.ev.ObfuscationExcerpts = append(w.ev.ObfuscationExcerpts, excerpt(text))
	}
	if matchesAny(w.rules.RedirectHints, text) {
		w.ev.RedirectExcerpts = append(w.ev.RedirectExcerpts, excerpt(text))
	}
	if matchesAny(w.rules.RightClickHints, text) {
		w.ev.RightClickExcerpts = append(w.ev.RightClickExcerpts, excerpt(text))
	}
}

func (w *walker) noteExternal(ref string) {
	if domain := w.refDomain(ref); domain != "" && domain != w.pageDomain {
		w.externals[domain] = true
	}
}

// refDomain extracts the registrable domain of an attribute reference. Empty
// for relative paths and non-network schemes.
func (w *walker) refDomain(ref string) string {
	return strings.ToLower(urlinfo.SplitURL(ref).Domain)
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= scriptExcerptLimit {
		return text
	}
	return string(runes[:scriptExcerptLimit]) + "..."
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return b.String()
}

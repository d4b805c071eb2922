// Package netprobe performs the network-facing identity checks: name
// resolution against configured resolvers and TLS certificate retrieval.
// Every probe runs under its own bounded timeout and reports failure as an
// error; callers degrade to "signal absent".
package netprobe

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// Config controls probe behavior. Resolvers are "ip:port" addresses queried
// in order until one answers.
type Config struct {
	Resolvers          []string
	UseSystemResolvers bool
	QueryTimeout       time.Duration
	TLSTimeout         time.Duration
}

// Resolution is the outcome of a successful name resolution.
type Resolution struct {
	IPs            []string
	CanonicalHosts []string
}

// CertInfo carries the leaf certificate validity window.
type CertInfo struct {
	NotBefore time.Time
	NotAfter  time.Time
	Subject   string
	Issuer    string
}

type Prober struct {
	cfg       Config
	resolvers []string
	client    *dns.Client
}

func New(cfg Config) *Prober {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 6 * time.Second
	}
	if cfg.TLSTimeout <= 0 {
		cfg.TLSTimeout = 8 * time.Second
	}

	var resolvers []string
	if cfg.UseSystemResolvers {
		sysConfig, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err == nil {
			for _, serverIP := range sysConfig.Servers {
				resolvers = append(resolvers, net.JoinHostPort(serverIP, sysConfig.Port))
			}
		} else {
			log.Printf("NetProbe: Warning - could not load system resolvers: %v", err)
		}
	}
	resolvers = append(resolvers, cfg.Resolvers...)
	if len(resolvers) == 0 {
		resolvers = []string{"1.1.1.1:53", "8.8.8.8:53"}
	}

	return &Prober{
		cfg:       cfg,
		resolvers: resolvers,
		client:    &dns.Client{Timeout: cfg.QueryTimeout},
	}
}

// Resolve looks up A and AAAA records for host and gathers any canonical
// (CNAME) hostnames seen along the way. IP-literal hosts resolve to
// themselves. A nil error guarantees at least one address or canonical host.
func (p *Prober) Resolve(ctx context.Context, host string) (*Resolution, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return nil, fmt.Errorf("empty host")
	}
	if ip := net.ParseIP(host); ip != nil {
		return &Resolution{IPs: []string{ip.String()}}, nil
	}

	ascii := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		ascii = converted
	}
	fqdn := dns.Fqdn(ascii)

	queryCtx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	res := &Resolution{}
	seenCNAME := make(map[string]bool)
	var lastErr error
	answered := false

	for _, recordType := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg, err := p.exchange(queryCtx, fqdn, recordType)
		if err != nil {
			lastErr = err
			continue
		}
		if msg.Rcode == dns.RcodeNameError {
			lastErr = &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
			continue
		}
		if msg.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("query for %s type %s returned RCODE %s", host, dns.TypeToString[recordType], dns.RcodeToString[msg.Rcode])
			continue
		}
		answered = true
		for _, rr := range msg.Answer {
			switch record := rr.(type) {
			case *dns.A:
				res.IPs = append(res.IPs, record.A.String())
			case *dns.AAAA:
				res.IPs = append(res.IPs, record.AAAA.String())
			case *dns.CNAME:
				target := strings.TrimSuffix(record.Target, ".")
				if target != "" && !seenCNAME[target] {
					seenCNAME[target] = true
					res.CanonicalHosts = append(res.CanonicalHosts, target)
				}
			}
		}
	}

	if !answered {
		if lastErr == nil {
			lastErr = fmt.Errorf("no resolver answered for %s", host)
		}
		return nil, lastErr
	}
	if len(res.IPs) == 0 && len(res.CanonicalHosts) == 0 {
		return nil, fmt.Errorf("no A or AAAA records found for %s", host)
	}
	res.IPs = deduplicate(res.IPs)
	return res, nil
}

// exchange tries each configured resolver in order until one responds.
func (p *Prober) exchange(ctx context.Context, fqdn string, recordType uint16) (*dns.Msg, error) {
	query := new(dns.Msg)
	query.SetQuestion(fqdn, recordType)
	query.RecursionDesired = true

	var lastErr error
	for _, resolver := range p.resolvers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		msg, _, err := p.client.ExchangeContext(ctx, query, resolver)
		if err != nil {
			lastErr = err
			continue
		}
		return msg, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no DNS resolvers available")
	}
	return nil, lastErr
}

// CertProbe performs a bounded TLS handshake against host:443 and returns the
// leaf certificate validity window.
func (p *Prober) CertProbe(ctx context.Context, host string) (*CertInfo, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.cfg.TLSTimeout},
		Config:    &tls.Config{ServerName: host},
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.TLSTimeout)
	defer cancel()

	conn, err := dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return nil, fmt.Errorf("TLS handshake with %s failed: %w", host, err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("no peer certificate presented by %s", host)
	}

	leaf := certs[0]
	return &CertInfo{
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
		Subject:   leaf.Subject.CommonName,
		Issuer:    leaf.Issuer.CommonName,
	}, nil
}

func deduplicate(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	j := 0
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		items[j] = item
		j++
	}
	return items[:j]
}

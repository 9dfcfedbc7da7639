// Package dnsrecords implements the DNS records verifier. It looks up the sender
// domain's MX, SPF, DMARC and MTA-STS records; any lookup failure, including a
// timeout, counts as the record being absent.
package dnsrecords

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/verifier"
)

const (
	Name    = "dns_records"
	version = "1.0.0"
	issuer  = "dns"

	DefaultTimeout = 3 * time.Second
	// DefaultMemoTTL bounds how long one domain's lookup result is shared
	// between the signal and finding passes of an evaluation.
	DefaultMemoTTL = 30 * time.Second
)

// Plugin is the DNS records verifier
type Plugin struct {
	verifier.Base
	resolver Resolver
	timeout  time.Duration
	logger   *slog.Logger

	flight  singleflight.Group
	mu      sync.Mutex
	memo    map[string]memoEntry
	memoTTL time.Duration
	now     func() time.Time
}

type memoEntry struct {
	rec     records
	expires time.Time
}

// New creates the plugin. A nil resolver leaves the plugin registered but
// inert: it returns no claims and no findings. Config keys: enabled, timeout,
// memo_ttl.
func New(config map[string]any, resolver Resolver, logger *slog.Logger) *Plugin {
	base := verifier.NewBase(Name, "Checks MX, SPF, DMARC and MTA-STS records of the sender domain", version, config)
	timeout := DefaultTimeout
	if v := base.Config("timeout"); v != nil {
		if d := cast.ToDuration(v); d > 0 {
			timeout = d
		}
	}
	memoTTL := DefaultMemoTTL
	if v := base.Config("memo_ttl"); v != nil {
		if d := cast.ToDuration(v); d > 0 {
			memoTTL = d
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		Base:     base,
		resolver: resolver,
		timeout:  timeout,
		logger:   logger,
		memo:     make(map[string]memoEntry),
		memoTTL:  memoTTL,
		now:      time.Now,
	}
}

// Available reports whether lookups are performed
func (p *Plugin) Available() bool { return p.resolver != nil }

// Healthcheck reports whether the plugin is enabled and has a resolver.
func (p *Plugin) Healthcheck(context.Context) bool {
	return p.Enabled() && p.Available()
}

type records struct {
	domain      string
	mx          []string
	spf         string
	dmarc       string
	dmarcDomain string
	mtaSTS      string
}

// resolve returns the lookup result for domain. Concurrent callers share one
// lookup, and the result is reused until memoTTL passes so that claims and
// findings of one evaluation always describe the same answers.
func (p *Plugin) resolve(ctx context.Context, domain string) records {
	now := p.now()
	p.mu.Lock()
	if e, ok := p.memo[domain]; ok && now.Before(e.expires) {
		p.mu.Unlock()
		return e.rec
	}
	p.mu.Unlock()

	v, _, _ := p.flight.Do(domain, func() (any, error) {
		rec := p.lookup(ctx, domain)
		p.remember(domain, rec)
		return rec, nil
	})
	return v.(records)
}

func (p *Plugin) remember(domain string, rec records) {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for d, e := range p.memo {
		if !now.Before(e.expires) {
			delete(p.memo, d)
		}
	}
	p.memo[domain] = memoEntry{rec: rec, expires: now.Add(p.memoTTL)}
}

func (p *Plugin) lookup(ctx context.Context, domain string) records {
	rec := records{domain: domain}

	var g errgroup.Group
	g.Go(func() error {
		rec.mx = p.lookupMX(ctx, domain)
		return nil
	})
	g.Go(func() error {
		rec.spf = p.findTXT(ctx, domain, func(s string) bool {
			return strings.HasPrefix(strings.ToLower(s), "v=spf1")
		})
		return nil
	})
	g.Go(func() error {
		rec.dmarc, rec.dmarcDomain = p.lookupDMARC(ctx, domain)
		return nil
	})
	g.Go(func() error {
		rec.mtaSTS = p.findTXT(ctx, "_mta-sts."+domain, func(s string) bool {
			return strings.Contains(strings.ToLower(s), "v=stsv1")
		})
		return nil
	})
	_ = g.Wait()
	return rec
}

func (p *Plugin) lookupMX(ctx context.Context, domain string) []string {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	mxs, err := p.resolver.LookupMX(ctx, domain)
	if err != nil {
		p.absent("MX", domain, err)
		return nil
	}
	sort.SliceStable(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
	hosts := make([]string, 0, len(mxs))
	for _, mx := range mxs {
		if h := strings.TrimSuffix(mx.Host, "."); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// lookupDMARC falls back to the organizational domain when a subdomain has no
// record of its own.
func (p *Plugin) lookupDMARC(ctx context.Context, domain string) (string, string) {
	isDMARC := func(s string) bool { return strings.HasPrefix(strings.ToLower(s), "v=dmarc1") }
	if rec := p.findTXT(ctx, "_dmarc."+domain, isDMARC); rec != "" {
		return rec, domain
	}
	org, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil || org == domain {
		return "", ""
	}
	if rec := p.findTXT(ctx, "_dmarc."+org, isDMARC); rec != "" {
		return rec, org
	}
	return "", ""
}

func (p *Plugin) findTXT(ctx context.Context, name string, match func(string) bool) string {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	txts, err := p.resolver.LookupTXT(ctx, name)
	if err != nil {
		p.absent("TXT", name, err)
		return ""
	}
	for _, t := range txts {
		t = strings.TrimSpace(t)
		if match(t) {
			return t
		}
	}
	return ""
}

func (p *Plugin) absent(rrtype, name string, err error) {
	if IsNotFound(err) {
		return
	}
	p.logger.Debug("dns lookup failed, treating as absent", "type", rrtype, "name", name, "error", err)
}

func (p *Plugin) domainOf(vc *models.VerificationContext) string {
	if !p.Available() {
		return ""
	}
	d := vc.SenderDomain
	if d == "" {
		d = models.DomainFromEmail(vc.SenderEmail)
	}
	return strings.TrimSuffix(strings.ToLower(d), ".")
}

// GatherSignals emits one claim per record found.
func (p *Plugin) GatherSignals(ctx context.Context, vc *models.VerificationContext) ([]models.TrustClaim, error) {
	domain := p.domainOf(vc)
	if domain == "" {
		return nil, nil
	}
	rec := p.resolve(ctx, domain)

	var claims []models.TrustClaim
	if len(rec.mx) > 0 {
		claims = append(claims, models.NewClaim(p.Name(), "mx_records", domain, issuer, map[string]any{
			"has_mx":   true,
			"mx_hosts": append([]string(nil), rec.mx...),
		}, 0.8))
	}
	if rec.spf != "" {
		claims = append(claims, models.NewClaim(p.Name(), "spf_record", domain, issuer, map[string]any{
			"record": rec.spf,
		}, 0.9))
	}
	if rec.dmarc != "" {
		claims = append(claims, models.NewClaim(p.Name(), "dmarc_record", domain, issuer, map[string]any{
			"record":      rec.dmarc,
			"policy":      dmarcPolicy(rec.dmarc),
			"record_from": rec.dmarcDomain,
		}, 0.9))
	}
	if rec.mtaSTS != "" {
		claims = append(claims, models.NewClaim(p.Name(), "mta_sts_record", domain, issuer, map[string]any{
			"record": rec.mtaSTS,
		}, 0.7))
	}
	return claims, nil
}

// GetFindings emits findings for missing DMARC, SPF and MX records.
func (p *Plugin) GetFindings(ctx context.Context, vc *models.VerificationContext) ([]models.Finding, error) {
	domain := p.domainOf(vc)
	if domain == "" {
		return nil, nil
	}
	rec := p.resolve(ctx, domain)

	var findings []models.Finding
	if rec.dmarc == "" {
		findings = append(findings, models.NewFinding("dmarc_missing", "No DMARC record", models.SeverityMedium, -10,
			"The sender domain publishes no DMARC policy, so spoofed mail from it is not rejected.",
			"no v=DMARC1 record at _dmarc."+domain,
			"Verify unexpected requests from this domain through another channel."))
	}
	if rec.spf == "" {
		findings = append(findings, models.NewFinding("spf_missing", "No SPF record", models.SeverityLow, -5,
			"The sender domain does not declare which servers may send its mail.",
			"no v=spf1 TXT record at "+domain,
			"Treat the sender identity as weakly authenticated."))
	}
	if len(rec.mx) == 0 {
		findings = append(findings, models.NewFinding("mx_missing", "No MX records", models.SeverityHigh, -20,
			"The sender domain has no mail exchangers and cannot legitimately receive mail.",
			"no MX records for "+domain,
			"The domain may not exist or may be spoofed; do not reply with sensitive information."))
	}
	return findings, nil
}

func dmarcPolicy(record string) string {
	for _, part := range strings.Split(record, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), "p") {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}

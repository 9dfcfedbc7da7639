// Package authresults implements the email authentication verifier: it reads
// SPF, DKIM and DMARC verdicts from the Authentication-Results header recorded by
// the receiving mail server and checks From / Return-Path / DKIM domain alignment.
package authresults

import (
	"context"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/verifier"
)

const (
	Name    = "email_auth"
	version = "1.0.0"

	headerName = "Authentication-Results"
	issuer     = "email_server"
)

// Alignment modes
const (
	AlignStrict  = "strict"
	AlignRelaxed = "relaxed"
)

// Plugin is the email authentication verifier
type Plugin struct {
	verifier.Base
	alignment string
}

// New creates the plugin. Config keys: enabled, alignment (strict|relaxed).
func New(config map[string]any) *Plugin {
	base := verifier.NewBase(Name, "Parses SPF, DKIM and DMARC results and checks sender domain alignment", version, config)
	mode := base.ConfigString("alignment", AlignStrict)
	if mode != AlignRelaxed {
		mode = AlignStrict
	}
	return &Plugin{Base: base, alignment: mode}
}

type evaluation struct {
	results    Results
	hasHeader  bool
	alignment  *alignment
	fromDomain string
}

type alignment struct {
	aligned    bool
	fromDomain string
	rpDomain   string
	dkimDomain string
}

func (p *Plugin) evaluate(vc *models.VerificationContext) evaluation {
	ev := evaluation{fromDomain: vc.SenderDomain}
	if ev.fromDomain == "" {
		ev.fromDomain = models.DomainFromEmail(vc.SenderEmail)
	}

	headers := vc.HeaderValues(headerName)
	if len(headers) > 0 {
		ev.hasHeader = true
		ev.results = Parse(strings.Join(headers, "; "))
	} else if len(vc.AuthResults) > 0 {
		ev.hasHeader = true
		ev.results = fromPreParsed(vc.AuthResults)
	}

	rpDomain := models.DomainFromEmail(vc.ReturnPath)
	dkimDomain := ""
	if ev.results.DKIM != nil {
		dkimDomain = ev.results.DKIM.Domain
	}
	if rpDomain != "" || dkimDomain != "" {
		ev.alignment = &alignment{
			aligned:    p.aligned(ev.fromDomain, rpDomain, dkimDomain),
			fromDomain: ev.fromDomain,
			rpDomain:   rpDomain,
			dkimDomain: dkimDomain,
		}
	}
	return ev
}

// aligned compares every non-empty domain against the From domain
func (p *Plugin) aligned(from string, others ...string) bool {
	if from == "" {
		return false
	}
	norm := p.normalize(from)
	for _, d := range others {
		if d == "" {
			continue
		}
		if p.normalize(d) != norm {
			return false
		}
	}
	return true
}

func (p *Plugin) normalize(domain string) string {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if p.alignment != AlignRelaxed {
		return domain
	}
	if org, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		return org
	}
	return domain
}

// GatherSignals emits one claim per mechanism present plus an alignment claim.
func (p *Plugin) GatherSignals(_ context.Context, vc *models.VerificationContext) ([]models.TrustClaim, error) {
	ev := p.evaluate(vc)
	subject := ev.fromDomain
	if subject == "" {
		subject = vc.SenderEmail
	}

	var claims []models.TrustClaim
	for _, m := range []*Mechanism{ev.results.SPF, ev.results.DKIM, ev.results.DMARC} {
		if m == nil {
			continue
		}
		confidence := 0.3
		if m.Passed() {
			confidence = 0.9
		}
		claims = append(claims, models.NewClaim(p.Name(), m.Method+"_result", subject, issuer, map[string]any{
			"result": m.Result,
			"domain": m.Domain,
			"raw":    m.Raw,
		}, confidence))
	}

	if a := ev.alignment; a != nil {
		confidence := 0.2
		if a.aligned {
			confidence = 0.8
		}
		claims = append(claims, models.NewClaim(p.Name(), "domain_alignment", subject, p.Name(), map[string]any{
			"aligned":            a.aligned,
			"from_domain":        a.fromDomain,
			"return_path_domain": a.rpDomain,
			"dkim_domain":        a.dkimDomain,
			"mode":               p.alignment,
		}, confidence))
	}
	return claims, nil
}

// GetFindings emits score-affecting authentication failures.
func (p *Plugin) GetFindings(_ context.Context, vc *models.VerificationContext) ([]models.Finding, error) {
	ev := p.evaluate(vc)
	var findings []models.Finding

	if spf := ev.results.SPF; spf != nil && (spf.Result == "fail" || spf.Result == "softfail") {
		findings = append(findings, models.NewFinding("spf_fail", "SPF check failed", models.SeverityHigh, -20,
			"The sending server is not authorized by the sender domain's SPF policy ("+spf.Result+").",
			spf.Raw,
			"Do not trust the sender identity; confirm the request through a known channel."))
	}
	if dkim := ev.results.DKIM; dkim != nil && dkim.Result == "fail" {
		findings = append(findings, models.NewFinding("dkim_fail", "DKIM signature failed", models.SeverityHigh, -20,
			"The message's DKIM signature did not verify; content or headers may have been altered.",
			dkim.Raw,
			"Treat the message content as unverified and avoid acting on links or payment details."))
	}
	if dmarc := ev.results.DMARC; dmarc != nil && dmarc.Result == "fail" {
		findings = append(findings, models.NewFinding("dmarc_fail", "DMARC check failed", models.SeverityHigh, -20,
			"The message failed the sender domain's DMARC policy.",
			dmarc.Raw,
			"The From address is likely spoofed; verify the sender independently."))
	}
	if ev.hasHeader && ev.results.DMARC == nil {
		findings = append(findings, models.NewFinding("dmarc_missing", "No DMARC result", models.SeverityMedium, -10,
			"The receiving server recorded no DMARC evaluation for the sender domain.",
			strings.Join(vc.HeaderValues(headerName), "; "),
			"Be cautious: the sender domain does not publish or pass a DMARC policy."))
	}
	if a := ev.alignment; a != nil && !a.aligned {
		f := models.NewFinding("domain_misalignment", "Sender domains do not align", models.SeverityMedium, -15,
			"The From domain does not match the Return-Path or DKIM signing domain.",
			"from="+a.fromDomain+" return-path="+a.rpDomain+" dkim="+a.dkimDomain,
			"Check the actual sending address; mismatched domains are a common spoofing pattern.")
		f.Metadata = map[string]string{"mode": p.alignment}
		findings = append(findings, f)
	}
	return findings, nil
}

// Package heuristics implements the content heuristics verifier, a table-driven
// scam-language detector over the subject, body and snippet of a message.
package heuristics

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/verifier"
)

const (
	Name    = "content_heuristics"
	version = "1.0.0"

	// evidence window on each side of a match, in characters
	contextChars = 50
)

// Plugin is the content heuristics verifier
type Plugin struct {
	verifier.Base
	patterns []Pattern
}

// New creates the plugin over the default pattern table.
func New(config map[string]any) *Plugin {
	return NewWithPatterns(config, Patterns)
}

// NewWithPatterns creates the plugin over a custom pattern table.
func NewWithPatterns(config map[string]any, patterns []Pattern) *Plugin {
	return &Plugin{
		Base:     verifier.NewBase(Name, "Detects scam and pressure language in message content", version, config),
		patterns: patterns,
	}
}

type match struct {
	pattern Pattern
	count   int
	window  string
}

func (p *Plugin) scan(vc *models.VerificationContext) []match {
	body := vc.BodyText
	if strings.TrimSpace(body) == "" && vc.BodyHTML != "" {
		body = StripHTML(vc.BodyHTML)
	}
	text := vc.ScanText(body)

	var out []match
	for _, pat := range p.patterns {
		locs := pat.Regex.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		out = append(out, match{
			pattern: pat,
			count:   len(locs),
			window:  window(text, locs[0][0], locs[0][1]),
		})
	}
	return out
}

// window returns the match with up to contextChars characters either side.
// start and end are byte offsets of the match in text.
func window(text string, start, end int) string {
	lo := start
	for i := 0; i < contextChars && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:lo])
		lo -= size
	}
	hi := end
	for i := 0; i < contextChars && hi < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[hi:])
		hi += size
	}
	return strings.TrimSpace(text[lo:hi])
}

// StripHTML returns the visible text of an HTML body: text nodes joined by
// single spaces, with script and style contents dropped. Attribute values never
// reach the output.
func StripHTML(s string) string {
	var (
		parts []string
		skip  string
	)
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a read error; either way the text so far is all there is
			return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip = tag
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == skip {
				skip = ""
			}
		case html.TextToken:
			if skip == "" {
				parts = append(parts, string(z.Text()))
			}
		}
	}
}

// GatherSignals emits a single claim summarizing which patterns matched.
func (p *Plugin) GatherSignals(_ context.Context, vc *models.VerificationContext) ([]models.TrustClaim, error) {
	matches := p.scan(vc)
	subject := vc.SenderEmail
	if subject == "" {
		subject = vc.MessageID
	}

	if len(matches) == 0 {
		return []models.TrustClaim{
			models.NewClaim(p.Name(), "no_scam_patterns", subject, p.Name(), map[string]any{
				"patterns_checked": len(p.patterns),
			}, 0.6),
		}, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.pattern.ID
	}
	return []models.TrustClaim{
		models.NewClaim(p.Name(), "scam_patterns_detected", subject, p.Name(), map[string]any{
			"patterns": ids,
		}, 0.7),
	}, nil
}

// GetFindings emits one finding per matched pattern.
func (p *Plugin) GetFindings(_ context.Context, vc *models.VerificationContext) ([]models.Finding, error) {
	matches := p.scan(vc)
	findings := make([]models.Finding, 0, len(matches))
	for _, m := range matches {
		f := models.NewFinding(m.pattern.ID, m.pattern.Name, m.pattern.Severity, m.pattern.Points,
			m.pattern.Description, m.window, m.pattern.Remediation)
		f.Metadata = map[string]string{"matches": strconv.Itoa(m.count)}
		findings = append(findings, f)
	}
	return findings, nil
}

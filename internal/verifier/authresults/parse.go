package authresults

import (
	"regexp"
	"strings"

	"github.com/stoik/trustlayer/internal/models"
)

var (
	spfRe   = regexp.MustCompile(`(?i)\bspf=([a-z]+)(?:[^;]*?\b(?:domain|smtp\.mailfrom)=([^\s;]+))?`)
	dkimRe  = regexp.MustCompile(`(?i)\bdkim=([a-z]+)(?:[^;]*?\bd=([^\s;]+))?`)
	dmarcRe = regexp.MustCompile(`(?i)\bdmarc=([a-z]+)(?:[^;]*?\bfrom=([^\s;]+))?`)
)

// Mechanism is one parsed method entry of an Authentication-Results header
type Mechanism struct {
	Method string
	Result string
	Domain string
	Raw    string
}

// Passed reports whether the mechanism result is pass
func (m *Mechanism) Passed() bool { return m != nil && m.Result == "pass" }

// Results holds the parsed spf/dkim/dmarc entries; absent ones are nil
type Results struct {
	SPF   *Mechanism
	DKIM  *Mechanism
	DMARC *Mechanism
}

// Parse extracts spf, dkim and dmarc entries from a concatenated
// Authentication-Results value. Matching is case-insensitive.
func Parse(header string) Results {
	return Results{
		SPF:   match(spfRe, "spf", header),
		DKIM:  match(dkimRe, "dkim", header),
		DMARC: match(dmarcRe, "dmarc", header),
	}
}

func match(re *regexp.Regexp, method, header string) *Mechanism {
	m := re.FindStringSubmatch(header)
	if m == nil {
		return nil
	}
	return &Mechanism{
		Method: method,
		Result: strings.ToLower(m[1]),
		Domain: cleanDomain(m[2]),
		Raw:    m[0],
	}
}

// cleanDomain strips a local part and surrounding punctuation
func cleanDomain(s string) string {
	s = strings.Trim(s, `"'<>()`)
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	return strings.ToLower(s)
}

// fromPreParsed builds Results from ingestion-supplied entries, used when no
// header is present.
func fromPreParsed(entries []models.AuthResult) Results {
	var r Results
	for _, e := range entries {
		m := &Mechanism{
			Method: strings.ToLower(e.Method),
			Result: strings.ToLower(e.Result),
			Domain: cleanDomain(e.Domain),
		}
		m.Raw = m.Method + "=" + m.Result
		if m.Domain != "" {
			m.Raw += " " + m.Domain
		}
		switch m.Method {
		case "spf":
			r.SPF = m
		case "dkim":
			r.DKIM = m
		case "dmarc":
			r.DMARC = m
		}
	}
	return r
}

package models

import (
	"strings"
	"time"
)

// AuthResult is one pre-parsed authentication entry (spf, dkim, dmarc) supplied by ingestion
type AuthResult struct {
	Method string `json:"method"`
	Result string `json:"result"`
	Domain string `json:"domain,omitempty"`
}

// VerificationContext identifies one email/thread under evaluation.
// It is built per request and never persisted directly.
type VerificationContext struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`

	SenderEmail  string `json:"sender_email"`
	SenderDomain string `json:"sender_domain"`
	ReplyTo      string `json:"reply_to,omitempty"`
	ReturnPath   string `json:"return_path,omitempty"`

	// RawHeaders keeps header names as received; a header may appear several times
	RawHeaders    map[string][]string `json:"raw_headers,omitempty"`
	ParsedHeaders map[string]string   `json:"parsed_headers,omitempty"`
	AuthResults   []AuthResult        `json:"auth_results,omitempty"`

	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html,omitempty"`
	Snippet  string `json:"snippet,omitempty"`

	ExtractedURLs    []string `json:"extracted_urls,omitempty"`
	ExtractedDomains []string `json:"extracted_domains,omitempty"`

	ThreadMessageCount int      `json:"thread_message_count"`
	IsReply            bool     `json:"is_reply"`
	PreviousMessages   []string `json:"previous_messages,omitempty"`

	UserID     string    `json:"user_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// DomainFromEmail returns the lowercase portion after the last '@'.
// Malformed addresses yield an empty domain rather than an error.
func DomainFromEmail(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		addr = addr[i+1:]
		addr = strings.TrimSuffix(addr, ">")
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[at+1:]))
}

// Normalize fills SenderDomain from SenderEmail when it was not supplied.
func (c *VerificationContext) Normalize() {
	if c.SenderDomain == "" {
		c.SenderDomain = DomainFromEmail(c.SenderEmail)
	} else {
		c.SenderDomain = strings.ToLower(strings.TrimSpace(c.SenderDomain))
	}
}

// HeaderValues returns all values of a header. Exact-case names win; otherwise
// the first case-insensitive match is used.
func (c *VerificationContext) HeaderValues(name string) []string {
	if c.RawHeaders == nil {
		return nil
	}
	if v, ok := c.RawHeaders[name]; ok {
		return v
	}
	for k, v := range c.RawHeaders {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// ScanText is the lower-cased subject + body text + snippet used by content analyzers.
func (c *VerificationContext) ScanText(body string) string {
	return strings.ToLower(strings.Join([]string{c.Subject, body, c.Snippet}, " "))
}

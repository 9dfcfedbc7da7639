package models

import (
	"time"

	"github.com/google/uuid"
)

// StoredEmail is an email record as handed over by the ingestion pipeline or
// fetched from the provider API
type StoredEmail struct {
	MessageID    string              `json:"message_id"`
	ThreadID     string              `json:"thread_id"`
	UserID       string              `json:"user_id,omitempty"`
	From         string              `json:"from"`
	SenderDomain string              `json:"sender_domain,omitempty"`
	ReplyTo      string              `json:"reply_to,omitempty"`
	ReturnPath   string              `json:"return_path,omitempty"`
	To           string              `json:"to,omitempty"`
	Subject      string              `json:"subject"`
	Snippet      string              `json:"snippet"`
	Body         string              `json:"body,omitempty"`
	BodyHTML     string              `json:"body_html,omitempty"`
	Headers      map[string][]string `json:"headers,omitempty"`
	URLs         []string            `json:"urls,omitempty"`
	MessageCount int                 `json:"message_count,omitempty"`
	ReceivedAt   time.Time           `json:"received_at"`
}

// ContextFromEmail builds a VerificationContext from a stored email. Missing
// identifiers are generated so a report can always be keyed.
func ContextFromEmail(e StoredEmail) *VerificationContext {
	vc := &VerificationContext{
		MessageID:          e.MessageID,
		ThreadID:           e.ThreadID,
		SenderEmail:        e.From,
		SenderDomain:       e.SenderDomain,
		ReplyTo:            e.ReplyTo,
		ReturnPath:         e.ReturnPath,
		RawHeaders:         e.Headers,
		Subject:            e.Subject,
		BodyText:           e.Body,
		BodyHTML:           e.BodyHTML,
		Snippet:            e.Snippet,
		ExtractedURLs:      e.URLs,
		ThreadMessageCount: e.MessageCount,
		IsReply:            e.MessageCount > 1,
		UserID:             e.UserID,
		ReceivedAt:         e.ReceivedAt,
	}
	if vc.MessageID == "" {
		vc.MessageID = uuid.NewString()
	}
	if vc.ThreadID == "" {
		vc.ThreadID = vc.MessageID
	}
	if vc.ThreadMessageCount == 0 {
		vc.ThreadMessageCount = 1
	}
	if vc.ReturnPath == "" {
		if v := vc.HeaderValues("Return-Path"); len(v) > 0 {
			vc.ReturnPath = v[0]
		}
	}
	if vc.ReceivedAt.IsZero() {
		vc.ReceivedAt = time.Now().UTC()
	}
	vc.Normalize()
	return vc
}

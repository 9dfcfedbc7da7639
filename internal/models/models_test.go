package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainFromEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@Example.COM", "example.com"},
		{"Alice <alice@mail.example.org>", "mail.example.org"},
		{"<bounce@lists.example.net>", "lists.example.net"},
		{"no-at-sign", ""},
		{"trailing@", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DomainFromEmail(tt.in), tt.in)
	}
}

func TestNormalizeDerivesDomain(t *testing.T) {
	vc := &VerificationContext{SenderEmail: "ceo@Startup.IO"}
	vc.Normalize()
	assert.Equal(t, "startup.io", vc.SenderDomain)

	vc = &VerificationContext{SenderEmail: "broken"}
	vc.Normalize()
	assert.Equal(t, "", vc.SenderDomain)

	vc = &VerificationContext{SenderEmail: "a@b.com", SenderDomain: " Other.COM "}
	vc.Normalize()
	assert.Equal(t, "other.com", vc.SenderDomain)
}

func TestHeaderValuesCaseFallback(t *testing.T) {
	vc := &VerificationContext{RawHeaders: map[string][]string{
		"authentication-results": {"spf=pass"},
	}}
	assert.Equal(t, []string{"spf=pass"}, vc.HeaderValues("Authentication-Results"))
	assert.Nil(t, vc.HeaderValues("Received-SPF"))
}

func TestTruncateEvidence(t *testing.T) {
	long := strings.Repeat("x", 500)
	assert.Len(t, TruncateEvidence(long), MaxEvidenceLength)
	assert.Equal(t, "short", TruncateEvidence("short"))

	multi := strings.Repeat("é", 250)
	got := TruncateEvidence(multi)
	assert.Equal(t, MaxEvidenceLength, len([]rune(got)))
}

func TestNewFindingCapsEvidence(t *testing.T) {
	f := NewFinding("r", "Rule", SeverityLow, -5, "d", strings.Repeat("a", 300), "fix")
	assert.Len(t, f.Evidence, MaxEvidenceLength)
	assert.NotEmpty(t, f.FindingID)
}

func TestFindingJSONCapsEvidence(t *testing.T) {
	f := Finding{RuleID: "r", Evidence: strings.Repeat("b", 400)}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var back Finding
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Len(t, back.Evidence, MaxEvidenceLength)

	raw := []byte(`{"rule_id":"x","evidence":"` + strings.Repeat("c", 250) + `"}`)
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Len(t, back.Evidence, MaxEvidenceLength)
}

func TestNewClaimClampsConfidence(t *testing.T) {
	c := NewClaim("p", "t", "s", "i", nil, 1.7)
	assert.Equal(t, 1.0, c.Confidence)
	assert.NotNil(t, c.Evidence)
	assert.Equal(t, "t", c.Map()["claim_type"])
}

func TestContextFromEmail(t *testing.T) {
	vc := ContextFromEmail(StoredEmail{
		From:    "Bob <bob@Vendor.com>",
		Subject: "hello",
		Headers: map[string][]string{"Return-Path": {"<bounce@vendor.com>"}},
	})
	assert.Equal(t, "vendor.com", vc.SenderDomain)
	assert.NotEmpty(t, vc.MessageID)
	assert.Equal(t, vc.MessageID, vc.ThreadID)
	assert.Equal(t, "<bounce@vendor.com>", vc.ReturnPath)
	assert.Equal(t, 1, vc.ThreadMessageCount)
	assert.False(t, vc.ReceivedAt.IsZero())
}

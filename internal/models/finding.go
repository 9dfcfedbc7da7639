package models

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Severity of a finding
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// MaxEvidenceLength caps Finding.Evidence, in characters
const MaxEvidenceLength = 200

// Finding is a scoring-relevant observation produced by exactly one plugin.
// Negative PointsDelta increases risk, positive increases trust.
type Finding struct {
	FindingID   string            `json:"finding_id"`
	RuleID      string            `json:"rule_id"`
	RuleName    string            `json:"rule_name"`
	Severity    Severity          `json:"severity"`
	PointsDelta int               `json:"points_delta"`
	Description string            `json:"description"`
	Evidence    string            `json:"evidence"`
	Remediation string            `json:"remediation"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewFinding builds a finding with a fresh id and evidence truncated to MaxEvidenceLength.
func NewFinding(ruleID, ruleName string, severity Severity, points int, description, evidence, remediation string) Finding {
	return Finding{
		FindingID:   uuid.NewString(),
		RuleID:      ruleID,
		RuleName:    ruleName,
		Severity:    severity,
		PointsDelta: points,
		Description: description,
		Evidence:    TruncateEvidence(evidence),
		Remediation: remediation,
	}
}

// TruncateEvidence cuts s to at most MaxEvidenceLength characters without
// splitting a UTF-8 sequence.
func TruncateEvidence(s string) string {
	if utf8.RuneCountInString(s) <= MaxEvidenceLength {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxEvidenceLength {
			return s[:i]
		}
		n++
	}
	return s
}

// MarshalJSON re-applies the evidence cap so a hand-built Finding can never
// serialize oversized evidence.
func (f Finding) MarshalJSON() ([]byte, error) {
	type plain Finding
	p := plain(f)
	p.Evidence = TruncateEvidence(p.Evidence)
	return json.Marshal(p)
}

// UnmarshalJSON applies the same cap on the way in.
func (f *Finding) UnmarshalJSON(data []byte) error {
	type plain Finding
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Evidence = TruncateEvidence(p.Evidence)
	*f = Finding(p)
	return nil
}

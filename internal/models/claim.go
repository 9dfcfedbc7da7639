package models

import (
	"time"

	"github.com/google/uuid"
)

// TrustClaim is an attestation produced by exactly one plugin about one subject.
// Claims explain a report; they never change its score.
type TrustClaim struct {
	ClaimID    string         `json:"claim_id" db:"claim_id"`
	Provider   string         `json:"provider" db:"provider"`
	ClaimType  string         `json:"claim_type" db:"claim_type"`
	Subject    string         `json:"subject" db:"subject"`
	Issuer     string         `json:"issuer" db:"issuer"`
	Evidence   map[string]any `json:"evidence" db:"evidence"`
	Confidence float64        `json:"confidence" db:"confidence"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// NewClaim builds a claim with a fresh id; confidence is clamped to [0,1].
func NewClaim(provider, claimType, subject, issuer string, evidence map[string]any, confidence float64) TrustClaim {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if evidence == nil {
		evidence = map[string]any{}
	}
	return TrustClaim{
		ClaimID:    uuid.NewString(),
		Provider:   provider,
		ClaimType:  claimType,
		Subject:    subject,
		Issuer:     issuer,
		Evidence:   evidence,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
}

// Map is the serialized form stored under a report's signals.
func (c TrustClaim) Map() map[string]any {
	return map[string]any{
		"claim_id":   c.ClaimID,
		"provider":   c.Provider,
		"claim_type": c.ClaimType,
		"subject":    c.Subject,
		"issuer":     c.Issuer,
		"evidence":   c.Evidence,
		"confidence": c.Confidence,
		"created_at": c.CreatedAt.Format(time.RFC3339),
	}
}

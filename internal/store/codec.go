package store

import (
	"encoding/json"
	"fmt"

	"github.com/stoik/trustlayer/internal/models"
)

// EncodeReport serializes the JSON columns of a report
func EncodeReport(r *models.TrustReport) (findings, signals []byte, err error) {
	fs := r.Findings
	if fs == nil {
		fs = []models.Finding{}
	}
	if findings, err = json.Marshal(fs); err != nil {
		return nil, nil, fmt.Errorf("failed to encode findings: %w", err)
	}
	sig := r.Signals
	if sig == nil {
		sig = map[string]map[string]any{}
	}
	if signals, err = json.Marshal(sig); err != nil {
		return nil, nil, fmt.Errorf("failed to encode signals: %w", err)
	}
	return findings, signals, nil
}

// DecodeReport restores the JSON columns of a report
func DecodeReport(r *models.TrustReport, findings, signals []byte) error {
	r.Findings = []models.Finding{}
	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &r.Findings); err != nil {
			return fmt.Errorf("failed to decode findings: %w", err)
		}
	}
	r.Signals = map[string]map[string]any{}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &r.Signals); err != nil {
			return fmt.Errorf("failed to decode signals: %w", err)
		}
	}
	return nil
}

// EncodeEvidence serializes a claim's evidence map
func EncodeEvidence(c models.TrustClaim) ([]byte, error) {
	ev := c.Evidence
	if ev == nil {
		ev = map[string]any{}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence for claim %s: %w", c.ClaimID, err)
	}
	return b, nil
}

// DecodeEvidence restores a claim's evidence map
func DecodeEvidence(b []byte) (map[string]any, error) {
	ev := map[string]any{}
	if len(b) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode evidence: %w", err)
	}
	return ev, nil
}

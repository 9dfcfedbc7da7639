package scoring

import "github.com/stoik/trustlayer/internal/models"

// RulesetVersion tags the rule catalogue and is stored on every report.
const RulesetVersion = "2024.1"

// ScoringRule documents a rule id and its default point value. Scoring uses
// the delta carried on each Finding; the catalogue is reference only.
type ScoringRule struct {
	ID          string          `json:"rule_id"`
	Description string          `json:"description"`
	PointsDelta int             `json:"points_delta"`
	Severity    models.Severity `json:"severity"`
}

// DefaultRules is the catalogue of rule ids emitted by the built-in plugins.
func DefaultRules() map[string]ScoringRule {
	rules := []ScoringRule{
		{"spf_fail", "SPF check failed or soft-failed", -20, models.SeverityHigh},
		{"dkim_fail", "DKIM signature failed", -20, models.SeverityHigh},
		{"dmarc_fail", "DMARC check failed", -20, models.SeverityHigh},
		{"dmarc_missing", "No DMARC result or record for the sender domain", -10, models.SeverityMedium},
		{"domain_misalignment", "From, Return-Path and DKIM domains disagree", -15, models.SeverityMedium},
		{"spf_missing", "Sender domain publishes no SPF record", -5, models.SeverityLow},
		{"mx_missing", "Sender domain has no MX records", -20, models.SeverityHigh},
		{"pay_to_pitch", "Payment requested for investor access or pitch", -35, models.SeverityHigh},
		{"suspicious_payment", "Wire, crypto, gift card or money-transfer payment", -30, models.SeverityHigh},
		{"roi_promises", "Specific percentage or multiple of return promised", -25, models.SeverityHigh},
		{"urgency_pressure", "Pressure to act immediately", -15, models.SeverityMedium},
		{"vague_opportunity", "Hyped, non-specific opportunity", -12, models.SeverityMedium},
		{"budget_anchoring", "Asks for budget up front", -10, models.SeverityLow},
		{"authority_garnish", "Leans on press mentions", -10, models.SeverityLow},
		{"credential_pressure", "Name-drops elite schools or accelerators", -5, models.SeverityLow},
		{"spelling_errors", "Misspellings common in scam campaigns", -8, models.SeverityLow},
	}
	out := make(map[string]ScoringRule, len(rules))
	for _, r := range rules {
		out[r.ID] = r
	}
	return out
}

// Band is the inclusive score range of one risk level
type Band struct {
	Level models.RiskLevel `json:"risk_level"`
	Min   int              `json:"min"`
	Max   int              `json:"max"`
}

// Score bounds and band thresholds
const (
	StartScore = 100
	MinScore   = 0
	MaxScore   = 100

	likelyOKFloor = 80
	cautionFloor  = 55
)

// Bands lists the risk bands from best to worst
func Bands() []Band {
	return []Band{
		{Level: models.RiskLikelyOK, Min: likelyOKFloor, Max: MaxScore},
		{Level: models.RiskCaution, Min: cautionFloor, Max: likelyOKFloor - 1},
		{Level: models.RiskHigh, Min: MinScore, Max: cautionFloor - 1},
	}
}

package models

import "time"

// RiskLevel is derived solely from a report's score
type RiskLevel string

const (
	RiskLikelyOK RiskLevel = "likely_ok"
	RiskCaution  RiskLevel = "caution"
	RiskHigh     RiskLevel = "high_risk"
)

// Valid reports whether r is one of the three known levels
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLikelyOK, RiskCaution, RiskHigh:
		return true
	}
	return false
}

// TrustReport is the aggregate output for one thread. Reports are append-only:
// the current report for a thread is the most recent by CreatedAt.
type TrustReport struct {
	ReportID         string                    `json:"report_id" db:"report_id"`
	ThreadID         string                    `json:"thread_id" db:"thread_id"`
	PrimaryMessageID string                    `json:"primary_message_id" db:"primary_message_id"`
	SenderEmail      string                    `json:"sender_email" db:"sender_email"`
	SenderDomain     string                    `json:"sender_domain" db:"sender_domain"`
	Score            int                       `json:"score" db:"score"`
	RiskLevel        RiskLevel                 `json:"risk_level" db:"risk_level"`
	Summary          string                    `json:"summary" db:"summary"`
	Findings         []Finding                 `json:"findings" db:"findings"`
	Claims           []TrustClaim              `json:"claims"`
	Signals          map[string]map[string]any `json:"signals" db:"signals"`
	Version          string                    `json:"version" db:"version"`
	RulesetVersion   string                    `json:"ruleset_version" db:"ruleset_version"`
	CreatedAt        time.Time                 `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at" db:"updated_at"`
}

// ReportSummary is the list view of a persisted report
type ReportSummary struct {
	ReportID     string    `json:"report_id"`
	ThreadID     string    `json:"thread_id"`
	SenderEmail  string    `json:"sender_email"`
	SenderDomain string    `json:"sender_domain"`
	Score        int       `json:"score"`
	RiskLevel    RiskLevel `json:"risk_level"`
	Summary      string    `json:"summary"`
	FindingCount int       `json:"finding_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReportStats aggregates persisted reports
type ReportStats struct {
	TotalReports       int               `json:"total_reports"`
	AverageScore       float64           `json:"average_score"`
	RiskDistribution   map[RiskLevel]int `json:"risk_distribution"`
	HighRiskPercentage float64           `json:"high_risk_percentage"`
}

// AuditEntry summarizes one generation pass
type AuditEntry struct {
	ID           string    `json:"id" db:"id"`
	ReportID     string    `json:"report_id" db:"report_id"`
	ThreadID     string    `json:"thread_id" db:"thread_id"`
	PluginCount  int       `json:"plugin_count" db:"plugin_count"`
	FindingCount int       `json:"finding_count" db:"finding_count"`
	ClaimCount   int       `json:"claim_count" db:"claim_count"`
	Score        int       `json:"score" db:"score"`
	RiskLevel    RiskLevel `json:"risk_level" db:"risk_level"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

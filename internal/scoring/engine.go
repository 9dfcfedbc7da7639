// Package scoring turns findings into a clamped trust score, a risk level and
// a short narrative summary.
package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stoik/trustlayer/internal/models"
)

// ReportVersion is the report schema version
const ReportVersion = "1.0"

var riskSentences = map[models.RiskLevel]string{
	models.RiskLikelyOK: "This email appears legitimate.",
	models.RiskCaution:  "This email shows some warning signs; proceed with caution.",
	models.RiskHigh:     "This email shows strong indicators of fraud or impersonation.",
}

// Engine is the table-driven scoring engine. It holds no per-call state.
type Engine struct {
	rules   map[string]ScoringRule
	version string
	now     func() time.Time
}

// NewEngine creates an engine over the default rule catalogue
func NewEngine() *Engine {
	return &Engine{
		rules:   DefaultRules(),
		version: RulesetVersion,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RulesetVersion returns the catalogue version
func (e *Engine) RulesetVersion() string { return e.version }

// Rule returns a catalogue entry
func (e *Engine) Rule(id string) (ScoringRule, bool) {
	r, ok := e.rules[id]
	return r, ok
}

// Rules returns the catalogue sorted by rule id
func (e *Engine) Rules() []ScoringRule {
	out := make([]ScoringRule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CalculateScore sums start and every finding's own PointsDelta, clamped to
// [0,100]. Claims do not affect the score.
func CalculateScore(findings []models.Finding, _ []models.TrustClaim, start int) int {
	score := start
	for _, f := range findings {
		score += f.PointsDelta
	}
	return Clamp(score)
}

// Clamp bounds a score to [MinScore, MaxScore]
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// RiskLevelFor is the only mapping from score to risk level.
func RiskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= likelyOKFloor:
		return models.RiskLikelyOK
	case score >= cautionFloor:
		return models.RiskCaution
	default:
		return models.RiskHigh
	}
}

// GenerateSummary returns the risk sentence followed by non-zero severity counts.
func GenerateSummary(_ int, level models.RiskLevel, findings []models.Finding, _ []models.TrustClaim) string {
	sentence := riskSentences[level]
	if len(findings) == 0 {
		return sentence + " No issues detected."
	}

	counts := map[models.Severity]int{}
	for _, f := range findings {
		counts[f.Severity]++
	}
	var parts []string
	for _, sev := range []models.Severity{models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s-severity", n, sev))
		}
	}
	noun := "issues"
	if len(findings) == 1 {
		noun = "issue"
	}
	return fmt.Sprintf("%s Found %s %s.", sentence, strings.Join(parts, ", "), noun)
}

// CreateReport scores findings and assembles the report. It performs no I/O.
func (e *Engine) CreateReport(vc *models.VerificationContext, findings []models.Finding, claims []models.TrustClaim) *models.TrustReport {
	if findings == nil {
		findings = []models.Finding{}
	}
	if claims == nil {
		claims = []models.TrustClaim{}
	}

	score := CalculateScore(findings, claims, StartScore)
	level := RiskLevelFor(score)

	signals := make(map[string]map[string]any, len(claims))
	for _, c := range claims {
		signals[c.ClaimType] = c.Map()
	}

	now := e.now()
	return &models.TrustReport{
		ReportID:         uuid.NewString(),
		ThreadID:         vc.ThreadID,
		PrimaryMessageID: vc.MessageID,
		SenderEmail:      vc.SenderEmail,
		SenderDomain:     vc.SenderDomain,
		Score:            score,
		RiskLevel:        level,
		Summary:          GenerateSummary(score, level, findings, claims),
		Findings:         findings,
		Claims:           claims,
		Signals:          signals,
		Version:          ReportVersion,
		RulesetVersion:   e.version,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

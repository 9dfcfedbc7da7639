package scoring

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/trustlayer/internal/models"
)

func finding(id string, sev models.Severity, pts int) models.Finding {
	return models.NewFinding(id, id, sev, pts, "", "", "")
}

func TestCalculateScoreClamps(t *testing.T) {
	var five []models.Finding
	for i := 0; i < 5; i++ {
		five = append(five, finding("pay_to_pitch", models.SeverityHigh, -35))
	}
	assert.Equal(t, 0, CalculateScore(five, nil, StartScore))
	assert.Equal(t, 100, CalculateScore([]models.Finding{finding("bonus", models.SeverityLow, 15)}, nil, StartScore))
	assert.Equal(t, 70, CalculateScore([]models.Finding{
		finding("dmarc_missing", models.SeverityMedium, -10),
		finding("mx_missing", models.SeverityHigh, -20),
	}, nil, StartScore))
	assert.Equal(t, 100, CalculateScore(nil, nil, StartScore))
}

func TestFindingDeltaIsAuthoritative(t *testing.T) {
	// catalogue says -30; the finding carries -45
	f := finding("suspicious_payment", models.SeverityHigh, -45)
	assert.Equal(t, 55, CalculateScore([]models.Finding{f}, nil, StartScore))

	rule, ok := NewEngine().Rule("suspicious_payment")
	require.True(t, ok)
	assert.Equal(t, -30, rule.PointsDelta)
}

func TestRiskLevelBoundaries(t *testing.T) {
	cases := map[int]models.RiskLevel{
		100: models.RiskLikelyOK,
		80:  models.RiskLikelyOK,
		79:  models.RiskCaution,
		55:  models.RiskCaution,
		54:  models.RiskHigh,
		0:   models.RiskHigh,
	}
	for score, want := range cases {
		assert.Equal(t, want, RiskLevelFor(score), "score %d", score)
	}
}

func TestBandsMatchRiskLevelFor(t *testing.T) {
	for _, b := range Bands() {
		assert.Equal(t, b.Level, RiskLevelFor(b.Min))
		assert.Equal(t, b.Level, RiskLevelFor(b.Max))
	}
}

func TestGenerateSummary(t *testing.T) {
	s := GenerateSummary(100, models.RiskLikelyOK, nil, nil)
	assert.Equal(t, "This email appears legitimate. No issues detected.", s)

	s = GenerateSummary(40, models.RiskHigh, []models.Finding{
		finding("a", models.SeverityHigh, -20),
		finding("b", models.SeverityHigh, -20),
		finding("c", models.SeverityLow, -5),
	}, nil)
	assert.Contains(t, s, "strong indicators")
	assert.Contains(t, s, "2 high-severity, 1 low-severity")
	assert.NotContains(t, s, "medium")

	s = GenerateSummary(85, models.RiskLikelyOK, []models.Finding{finding("c", models.SeverityMedium, -15)}, nil)
	assert.Contains(t, s, "1 medium-severity issue.")
}

func TestCreateReport(t *testing.T) {
	e := NewEngine()
	vc := &models.VerificationContext{MessageID: "m1", ThreadID: "t1", SenderEmail: "a@b.test", SenderDomain: "b.test"}
	claims := []models.TrustClaim{
		models.NewClaim("dns_records", "mx_records", "b.test", "dns", nil, 0.8),
		models.NewClaim("content_heuristics", "no_scam_patterns", "a@b.test", "content_heuristics", nil, 0.6),
	}
	findings := []models.Finding{finding("spf_missing", models.SeverityLow, -5)}

	r := e.CreateReport(vc, findings, claims)
	assert.NotEmpty(t, r.ReportID)
	assert.Equal(t, "t1", r.ThreadID)
	assert.Equal(t, "m1", r.PrimaryMessageID)
	assert.Equal(t, 95, r.Score)
	assert.Equal(t, models.RiskLikelyOK, r.RiskLevel)
	assert.Equal(t, RulesetVersion, r.RulesetVersion)
	assert.Len(t, r.Signals, 2)
	assert.Equal(t, "dns_records", r.Signals["mx_records"]["provider"])
	assert.NotEmpty(t, r.Summary)

	again := e.CreateReport(vc, findings, claims)
	assert.Equal(t, r.Score, again.Score)
	assert.Equal(t, r.RiskLevel, again.RiskLevel)
	assert.Equal(t, r.Summary, again.Summary)
	assert.NotEqual(t, r.ReportID, again.ReportID)
}

func TestCreateReportEmpty(t *testing.T) {
	r := NewEngine().CreateReport(&models.VerificationContext{}, nil, nil)
	assert.Equal(t, 100, r.Score)
	assert.NotNil(t, r.Findings)
	assert.NotNil(t, r.Claims)
}

func TestRulesSorted(t *testing.T) {
	rules := NewEngine().Rules()
	require.Len(t, rules, len(DefaultRules()))
	for i := 1; i < len(rules); i++ {
		assert.Less(t, rules[i-1].ID, rules[i].ID)
	}
}

func TestScoreProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("score is always within [0,100]", prop.ForAll(
		func(deltas []int) bool {
			findings := make([]models.Finding, len(deltas))
			for i, d := range deltas {
				findings[i] = models.Finding{PointsDelta: d}
			}
			s := CalculateScore(findings, nil, StartScore)
			return s >= MinScore && s <= MaxScore
		},
		gen.SliceOf(gen.IntRange(-60, 30)),
	))

	properties.Property("risk level depends only on score", prop.ForAll(
		func(score int) bool {
			level := RiskLevelFor(score)
			switch {
			case score >= 80:
				return level == models.RiskLikelyOK
			case score >= 55:
				return level == models.RiskCaution
			default:
				return level == models.RiskHigh
			}
		},
		gen.IntRange(0, 100),
	))

	properties.Property("report risk level matches its score", prop.ForAll(
		func(deltas []int) bool {
			findings := make([]models.Finding, len(deltas))
			for i, d := range deltas {
				findings[i] = models.Finding{PointsDelta: d, Severity: models.SeverityLow}
			}
			r := NewEngine().CreateReport(&models.VerificationContext{}, findings, nil)
			return r.RiskLevel == RiskLevelFor(r.Score) && r.Score == CalculateScore(findings, nil, StartScore)
		},
		gen.SliceOf(gen.IntRange(-40, 10)),
	))

	properties.TestingRun(t)
}

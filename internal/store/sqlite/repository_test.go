package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/store"
)

func openTest(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleReport(thread string, score int, level models.RiskLevel, at time.Time) (*models.TrustReport, models.AuditEntry) {
	r := &models.TrustReport{
		ReportID:       uuid.NewString(),
		ThreadID:       thread,
		SenderEmail:    "ceo@vendor.test",
		SenderDomain:   "vendor.test",
		Score:          score,
		RiskLevel:      level,
		Summary:        "summary",
		Version:        "1.0",
		RulesetVersion: "2024.1",
		Findings: []models.Finding{
			models.NewFinding("spf_fail", "SPF check failed", models.SeverityHigh, -20, "desc", "spf=fail", "fix"),
		},
		Claims: []models.TrustClaim{
			models.NewClaim("email_auth", "spf_result", "vendor.test", "email_server", map[string]any{"result": "fail"}, 0.3),
			models.NewClaim("dns_records", "mx_records", "vendor.test", "dns", map[string]any{"mx_hosts": []string{"mx.vendor.test"}}, 0.8),
		},
		Signals:   map[string]map[string]any{"spf_result": {"provider": "email_auth"}},
		CreatedAt: at,
		UpdatedAt: at,
	}
	audit := models.AuditEntry{
		ID:           uuid.NewString(),
		ReportID:     r.ReportID,
		ThreadID:     thread,
		PluginCount:  3,
		FindingCount: len(r.Findings),
		ClaimCount:   len(r.Claims),
		Score:        score,
		RiskLevel:    level,
		CreatedAt:    at,
	}
	return r, audit
}

func TestRoundTrip(t *testing.T) {
	repo := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old, oldAudit := sampleReport("t1", 90, models.RiskLikelyOK, now.Add(-time.Hour))
	require.NoError(t, repo.SaveReport(ctx, old, oldAudit))
	latest, audit := sampleReport("t1", 80, models.RiskLikelyOK, now)
	require.NoError(t, repo.SaveReport(ctx, latest, audit))

	got, err := repo.LatestReport(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, latest.ReportID, got.ReportID)
	assert.Equal(t, 80, got.Score)
	assert.Equal(t, models.RiskLikelyOK, got.RiskLevel)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, "spf_fail", got.Findings[0].RuleID)
	assert.Equal(t, models.SeverityHigh, got.Findings[0].Severity)
	assert.Equal(t, -20, got.Findings[0].PointsDelta)
	assert.Equal(t, "desc", got.Findings[0].Description)
	require.Len(t, got.Claims, 2)
	assert.Equal(t, "spf_result", got.Claims[0].ClaimType)
	assert.Equal(t, "fail", got.Claims[0].Evidence["result"])
	assert.WithinDuration(t, now, got.CreatedAt, time.Millisecond)
	assert.Equal(t, "email_auth", got.Signals["spf_result"]["provider"])
}

func TestLatestReportNotFound(t *testing.T) {
	_, err := openTest(t).LatestReport(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListAndStats(t *testing.T) {
	repo := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, tc := range []struct {
		score int
		level models.RiskLevel
	}{
		{95, models.RiskLikelyOK},
		{60, models.RiskCaution},
		{10, models.RiskHigh},
		{0, models.RiskHigh},
	} {
		r, a := sampleReport(uuid.NewString(), tc.score, tc.level, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.SaveReport(ctx, r, a))
	}

	all, err := repo.ListReports(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 0, all[0].Score)
	assert.Equal(t, 1, all[0].FindingCount)

	high, err := repo.ListReports(ctx, 1, models.RiskHigh)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, models.RiskHigh, high[0].RiskLevel)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalReports)
	assert.Equal(t, 41.25, stats.AverageScore)
	assert.Equal(t, 2, stats.RiskDistribution[models.RiskHigh])
	assert.Equal(t, 1, stats.RiskDistribution[models.RiskCaution])
	assert.Equal(t, 50.0, stats.HighRiskPercentage)
}

func TestEmptyStats(t *testing.T) {
	stats, err := openTest(t).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalReports)
	assert.Equal(t, 0.0, stats.AverageScore)
	assert.Len(t, stats.RiskDistribution, 3)
}

func TestFailedClaimRollsBackReport(t *testing.T) {
	repo := openTest(t)
	ctx := context.Background()

	r, a := sampleReport("t-dup", 50, models.RiskHigh, time.Now())
	r.Claims[1].ClaimID = r.Claims[0].ClaimID

	require.Error(t, repo.SaveReport(ctx, r, a))

	_, err := repo.LatestReport(ctx, "t-dup")
	assert.ErrorIs(t, err, store.ErrNotFound)

	var claims int
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trust_claims`).Scan(&claims))
	assert.Zero(t, claims)
}

func TestAuditFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r, a := sampleReport("t1", 70, models.RiskCaution, time.Now())
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trust_reports").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO trust_claims").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO trust_claims").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO trust_audit_log").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = New(db).SaveReport(context.Background(), r, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r, a := sampleReport("t1", 70, models.RiskCaution, time.Now())
	r.Claims = nil
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trust_reports").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO trust_audit_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, New(db).SaveReport(context.Background(), r, a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

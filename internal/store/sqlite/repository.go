// Package sqlite is the embedded report repository used for local runs and
// tests. Timestamps are stored as fixed-width UTC text so they sort lexically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/store"
	"github.com/stoik/trustlayer/internal/store/migrations"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Repository implements store.Repository on database/sql
type Repository struct {
	db *sql.DB
}

var _ store.Repository = (*Repository)(nil)

// Open opens the database at dsn and applies migrations. ":memory:" is
// pinned to a single connection so every query sees the same database.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := migrations.Up(ctx, db, migrations.SQLite); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already-migrated database
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate applies pending migrations
func (r *Repository) Migrate(ctx context.Context) (int, error) {
	return migrations.Up(ctx, r.db, migrations.SQLite)
}

func (r *Repository) Close() error { return r.db.Close() }

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func (r *Repository) SaveReport(ctx context.Context, report *models.TrustReport, audit models.AuditEntry) (err error) {
	findings, signals, err := store.EncodeReport(report)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trust_reports (report_id, thread_id, primary_message_id, sender_email, sender_domain,
			score, risk_level, summary, findings, finding_count, signals, version, ruleset_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ReportID, report.ThreadID, report.PrimaryMessageID, report.SenderEmail, report.SenderDomain,
		report.Score, string(report.RiskLevel), report.Summary, string(findings), len(report.Findings), string(signals),
		report.Version, report.RulesetVersion, formatTime(report.CreatedAt), formatTime(report.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	for _, c := range report.Claims {
		var evidence []byte
		if evidence, err = store.EncodeEvidence(c); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trust_claims (claim_id, report_id, provider, claim_type, subject, issuer, evidence, confidence, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ClaimID, report.ReportID, c.Provider, c.ClaimType, c.Subject, c.Issuer, string(evidence), c.Confidence, formatTime(c.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert claim %s: %w", c.ClaimID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trust_audit_log (id, report_id, thread_id, plugin_count, finding_count, claim_count, score, risk_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, audit.ID, report.ReportID, audit.ThreadID, audit.PluginCount, audit.FindingCount, audit.ClaimCount,
		audit.Score, string(audit.RiskLevel), formatTime(audit.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

func (r *Repository) LatestReport(ctx context.Context, threadID string) (*models.TrustReport, error) {
	var (
		rep                  models.TrustReport
		risk                 string
		findings, signals    string
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT report_id, thread_id, primary_message_id, sender_email, sender_domain, score, risk_level,
			summary, findings, signals, version, ruleset_version, created_at, updated_at
		FROM trust_reports
		WHERE thread_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, threadID).Scan(&rep.ReportID, &rep.ThreadID, &rep.PrimaryMessageID, &rep.SenderEmail, &rep.SenderDomain,
		&rep.Score, &risk, &rep.Summary, &findings, &signals, &rep.Version, &rep.RulesetVersion,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	rep.RiskLevel = models.RiskLevel(risk)
	rep.CreatedAt = parseTime(createdAt)
	rep.UpdatedAt = parseTime(updatedAt)
	if err := store.DecodeReport(&rep, []byte(findings), []byte(signals)); err != nil {
		return nil, err
	}

	claims, err := r.claims(ctx, rep.ReportID)
	if err != nil {
		return nil, err
	}
	rep.Claims = claims
	return &rep, nil
}

func (r *Repository) claims(ctx context.Context, reportID string) ([]models.TrustClaim, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT claim_id, provider, claim_type, subject, issuer, evidence, confidence, created_at
		FROM trust_claims
		WHERE report_id = ?
		ORDER BY rowid
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	claims := []models.TrustClaim{}
	for rows.Next() {
		var (
			c                   models.TrustClaim
			evidence, createdAt string
		)
		if err := rows.Scan(&c.ClaimID, &c.Provider, &c.ClaimType, &c.Subject, &c.Issuer, &evidence, &c.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		if c.Evidence, err = store.DecodeEvidence([]byte(evidence)); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (r *Repository) ListReports(ctx context.Context, limit int, risk models.RiskLevel) ([]models.ReportSummary, error) {
	query := `
		SELECT report_id, thread_id, sender_email, sender_domain, score, risk_level, summary, finding_count, created_at
		FROM trust_reports`
	args := []any{}
	if risk != "" {
		query += ` WHERE risk_level = ?`
		args = append(args, string(risk))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, store.NormalizeLimit(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	out := []models.ReportSummary{}
	for rows.Next() {
		var (
			s                models.ReportSummary
			level, createdAt string
		)
		if err := rows.Scan(&s.ReportID, &s.ThreadID, &s.SenderEmail, &s.SenderDomain, &s.Score, &level,
			&s.Summary, &s.FindingCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		s.RiskLevel = models.RiskLevel(level)
		s.CreatedAt = parseTime(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Stats(ctx context.Context) (*models.ReportStats, error) {
	var (
		total int
		avg   float64
	)
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(AVG(score), 0.0) FROM trust_reports`).Scan(&total, &avg); err != nil {
		return nil, fmt.Errorf("failed to aggregate reports: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT risk_level, COUNT(*) FROM trust_reports GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to count risk levels: %w", err)
	}
	defer rows.Close()

	dist := map[models.RiskLevel]int{}
	for rows.Next() {
		var (
			level string
			n     int
		)
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("failed to scan risk level count: %w", err)
		}
		dist[models.RiskLevel(level)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.NewStats(total, avg, dist), nil
}

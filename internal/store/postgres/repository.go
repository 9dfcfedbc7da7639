// Package postgres is the pgx-backed report repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/store"
	"github.com/stoik/trustlayer/internal/store/migrations"
)

// Repository implements store.Repository on a pgx pool
type Repository struct {
	Pool *pgxpool.Pool
}

var _ store.Repository = (*Repository)(nil)

// Connect opens and pings a pool
func Connect(ctx context.Context, url string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Repository{Pool: pool}, nil
}

// Migrate applies the embedded schema through a database/sql view of the pool
func (r *Repository) Migrate(ctx context.Context) (int, error) {
	db := stdlib.OpenDBFromPool(r.Pool)
	defer db.Close()
	return migrations.Up(ctx, db, migrations.Postgres)
}

func (r *Repository) Close() error {
	r.Pool.Close()
	return nil
}

func (r *Repository) SaveReport(ctx context.Context, report *models.TrustReport, audit models.AuditEntry) (err error) {
	findings, signals, err := store.EncodeReport(report)
	if err != nil {
		return err
	}

	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO trust_reports (report_id, thread_id, primary_message_id, sender_email, sender_domain,
			score, risk_level, summary, findings, finding_count, signals, version, ruleset_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, report.ReportID, report.ThreadID, report.PrimaryMessageID, report.SenderEmail, report.SenderDomain,
		report.Score, string(report.RiskLevel), report.Summary, findings, len(report.Findings), signals,
		report.Version, report.RulesetVersion, report.CreatedAt, report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	for _, c := range report.Claims {
		var evidence []byte
		if evidence, err = store.EncodeEvidence(c); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO trust_claims (claim_id, report_id, provider, claim_type, subject, issuer, evidence, confidence, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, c.ClaimID, report.ReportID, c.Provider, c.ClaimType, c.Subject, c.Issuer, evidence, c.Confidence, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert claim %s: %w", c.ClaimID, err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO trust_audit_log (id, report_id, thread_id, plugin_count, finding_count, claim_count, score, risk_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, audit.ID, report.ReportID, audit.ThreadID, audit.PluginCount, audit.FindingCount, audit.ClaimCount,
		audit.Score, string(audit.RiskLevel), audit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

func (r *Repository) LatestReport(ctx context.Context, threadID string) (*models.TrustReport, error) {
	var (
		rep               models.TrustReport
		risk              string
		findings, signals []byte
	)
	err := r.Pool.QueryRow(ctx, `
		SELECT report_id::text, thread_id, primary_message_id, sender_email, sender_domain, score, risk_level,
			summary, findings, signals, version, ruleset_version, created_at, updated_at
		FROM trust_reports
		WHERE thread_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, threadID).Scan(&rep.ReportID, &rep.ThreadID, &rep.PrimaryMessageID, &rep.SenderEmail, &rep.SenderDomain,
		&rep.Score, &risk, &rep.Summary, &findings, &signals, &rep.Version, &rep.RulesetVersion,
		&rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}
	rep.RiskLevel = models.RiskLevel(risk)
	if err := store.DecodeReport(&rep, findings, signals); err != nil {
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
	rows, err := r.Pool.Query(ctx, `
		SELECT claim_id::text, provider, claim_type, subject, issuer, evidence, confidence, created_at
		FROM trust_claims
		WHERE report_id = $1
		ORDER BY seq
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	claims := []models.TrustClaim{}
	for rows.Next() {
		var (
			c        models.TrustClaim
			evidence []byte
		)
		if err := rows.Scan(&c.ClaimID, &c.Provider, &c.ClaimType, &c.Subject, &c.Issuer, &evidence, &c.Confidence, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		if c.Evidence, err = store.DecodeEvidence(evidence); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (r *Repository) ListReports(ctx context.Context, limit int, risk models.RiskLevel) ([]models.ReportSummary, error) {
	query := `
		SELECT report_id::text, thread_id, sender_email, sender_domain, score, risk_level, summary, finding_count, created_at
		FROM trust_reports`
	args := []any{}
	if risk != "" {
		query += ` WHERE risk_level = $1`
		args = append(args, string(risk))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, seq DESC LIMIT $%d`, len(args)+1)
	args = append(args, store.NormalizeLimit(limit))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	out := []models.ReportSummary{}
	for rows.Next() {
		var (
			s     models.ReportSummary
			level string
		)
		if err := rows.Scan(&s.ReportID, &s.ThreadID, &s.SenderEmail, &s.SenderDomain, &s.Score, &level,
			&s.Summary, &s.FindingCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		s.RiskLevel = models.RiskLevel(level)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Stats(ctx context.Context) (*models.ReportStats, error) {
	var (
		total int
		avg   float64
	)
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(AVG(score), 0)::float8 FROM trust_reports`).Scan(&total, &avg); err != nil {
		return nil, fmt.Errorf("failed to aggregate reports: %w", err)
	}

	rows, err := r.Pool.Query(ctx, `SELECT risk_level, COUNT(*) FROM trust_reports GROUP BY risk_level`)
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

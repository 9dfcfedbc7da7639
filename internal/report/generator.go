// Package report orchestrates one evaluation pass: gather claims and findings
// from the registry, score them, and persist the result atomically.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/scoring"
	"github.com/stoik/trustlayer/internal/store"
	"github.com/stoik/trustlayer/internal/verifier"
)

var (
	// ErrEmailNotFound is returned when no stored email exists for a thread
	ErrEmailNotFound = errors.New("email not found")
	// ErrNoStore is returned by persistence operations on a generator without a repository
	ErrNoStore = errors.New("no report store configured")
)

// EmailSource looks up the stored email behind a thread
type EmailSource interface {
	GetThread(ctx context.Context, threadID string) (*models.StoredEmail, error)
}

// Generator produces and persists trust reports
type Generator struct {
	registry *verifier.Registry
	engine   *scoring.Engine
	repo     store.Repository
	logger   *slog.Logger
}

// NewGenerator wires a generator. repo may be nil for evaluation without persistence.
func NewGenerator(registry *verifier.Registry, engine *scoring.Engine, repo store.Repository, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{registry: registry, engine: engine, repo: repo, logger: logger}
}

// Engine returns the scoring engine
func (g *Generator) Engine() *scoring.Engine { return g.engine }

// Registry returns the plugin registry
func (g *Generator) Registry() *verifier.Registry { return g.registry }

// Evaluate runs every enabled plugin and scores the result without persisting it.
// Plugins see a normalized copy of vc; the caller's context is left untouched.
func (g *Generator) Evaluate(ctx context.Context, in *models.VerificationContext) (*models.TrustReport, error) {
	if in == nil {
		return nil, errors.New("verification context is required")
	}
	vc := new(models.VerificationContext)
	*vc = *in
	vc.Normalize()
	if vc.MessageID == "" {
		vc.MessageID = uuid.NewString()
	}
	if vc.ThreadID == "" {
		vc.ThreadID = vc.MessageID
	}

	claims := g.registry.GatherAllSignals(ctx, vc).Flatten()
	findings := g.registry.GatherAllFindings(ctx, vc).Flatten()
	return g.engine.CreateReport(vc, findings, claims), nil
}

// GenerateReport evaluates vc and persists the report, its claims and an audit
// entry in one transaction. A persistence failure is returned and nothing is saved.
func (g *Generator) GenerateReport(ctx context.Context, vc *models.VerificationContext) (*models.TrustReport, error) {
	if g.repo == nil {
		return nil, ErrNoStore
	}
	started := time.Now()
	rep, err := g.Evaluate(ctx, vc)
	if err != nil {
		return nil, err
	}

	audit := models.AuditEntry{
		ID:           uuid.NewString(),
		ReportID:     rep.ReportID,
		ThreadID:     rep.ThreadID,
		PluginCount:  len(g.registry.Enabled()),
		FindingCount: len(rep.Findings),
		ClaimCount:   len(rep.Claims),
		Score:        rep.Score,
		RiskLevel:    rep.RiskLevel,
		CreatedAt:    rep.CreatedAt,
	}
	if err := g.repo.SaveReport(ctx, rep, audit); err != nil {
		g.logger.Error("failed to persist trust report", "thread_id", rep.ThreadID, "report_id", rep.ReportID, "error", err)
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	g.logger.Info("trust report generated",
		"thread_id", rep.ThreadID,
		"report_id", rep.ReportID,
		"score", rep.Score,
		"risk_level", rep.RiskLevel,
		"findings", len(rep.Findings),
		"claims", len(rep.Claims),
		"duration", time.Since(started))
	return rep, nil
}

// GenerateReportFromEmail builds a context from a stored email and generates its report.
func (g *Generator) GenerateReportFromEmail(ctx context.Context, email models.StoredEmail) (*models.TrustReport, error) {
	return g.GenerateReport(ctx, models.ContextFromEmail(email))
}

// GenerateForThread fetches the thread's email from src and generates a report
// for it. ErrEmailNotFound is returned when src has no such thread.
func (g *Generator) GenerateForThread(ctx context.Context, threadID string, src EmailSource) (*models.TrustReport, error) {
	if src == nil {
		return nil, ErrEmailNotFound
	}
	email, err := src.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch email for thread %s: %w", threadID, err)
	}
	if email == nil {
		return nil, ErrEmailNotFound
	}
	if email.ThreadID == "" {
		email.ThreadID = threadID
	}
	return g.GenerateReportFromEmail(ctx, *email)
}

// GetReport returns the most recent report for a thread, or nil if none exists.
func (g *Generator) GetReport(ctx context.Context, threadID string) (*models.TrustReport, error) {
	if g.repo == nil {
		return nil, ErrNoStore
	}
	rep, err := g.repo.LatestReport(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

// ListReports returns report summaries, newest first, optionally filtered by risk level
func (g *Generator) ListReports(ctx context.Context, limit int, risk models.RiskLevel) ([]models.ReportSummary, error) {
	if g.repo == nil {
		return nil, ErrNoStore
	}
	return g.repo.ListReports(ctx, limit, risk)
}

// Stats returns aggregate statistics over persisted reports
func (g *Generator) Stats(ctx context.Context) (*models.ReportStats, error) {
	if g.repo == nil {
		return nil, ErrNoStore
	}
	return g.repo.Stats(ctx)
}

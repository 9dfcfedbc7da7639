// Package store defines the persistence contract for trust reports.
package store

import (
	"context"
	"errors"
	"math"

	"github.com/stoik/trustlayer/internal/models"
)

// ErrNotFound is returned when no report exists for a thread
var ErrNotFound = errors.New("report not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Repository persists reports. SaveReport writes the report row, its claim
// rows and the audit row in one transaction: either all are visible or none.
type Repository interface {
	SaveReport(ctx context.Context, report *models.TrustReport, audit models.AuditEntry) error
	LatestReport(ctx context.Context, threadID string) (*models.TrustReport, error)
	ListReports(ctx context.Context, limit int, risk models.RiskLevel) ([]models.ReportSummary, error)
	Stats(ctx context.Context) (*models.ReportStats, error)
	Close() error
}

// NormalizeLimit applies the default and upper bound to a list limit
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// NewStats builds aggregate statistics; every risk level is present in the
// distribution.
func NewStats(total int, avgScore float64, dist map[models.RiskLevel]int) *models.ReportStats {
	stats := &models.ReportStats{
		TotalReports: total,
		RiskDistribution: map[models.RiskLevel]int{
			models.RiskLikelyOK: 0,
			models.RiskCaution:  0,
			models.RiskHigh:     0,
		},
	}
	for level, n := range dist {
		if level.Valid() {
			stats.RiskDistribution[level] = n
		}
	}
	if total > 0 {
		stats.AverageScore = round2(avgScore)
		stats.HighRiskPercentage = round2(float64(stats.RiskDistribution[models.RiskHigh]) * 100 / float64(total))
	}
	return stats
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// Package verifier defines the contract every trust analyzer implements and the
// registry that dispatches evaluation passes across registered analyzers.
package verifier

import (
	"context"
	"errors"

	"github.com/spf13/cast"

	"github.com/stoik/trustlayer/internal/models"
)

// ErrUnsupported is returned when a plugin does not implement an optional capability
var ErrUnsupported = errors.New("verification flow not supported by plugin")

// Verifier is the capability every analyzer implements. GatherSignals must not
// fail on expected absence (missing headers, NXDOMAIN); those yield fewer claims.
type Verifier interface {
	Name() string
	Description() string
	Version() string
	Enabled() bool
	GatherSignals(ctx context.Context, vc *models.VerificationContext) ([]models.TrustClaim, error)
}

// FindingsProvider is implemented by plugins that emit score-affecting findings.
type FindingsProvider interface {
	GetFindings(ctx context.Context, vc *models.VerificationContext) ([]models.Finding, error)
}

// InteractiveVerifier is implemented by plugins driving an external verification
// flow (e.g. a callback-based identity check).
type InteractiveVerifier interface {
	RequestVerification(ctx context.Context, vc *models.VerificationContext, params map[string]any) (map[string]any, error)
	CompleteVerification(ctx context.Context, callbackData map[string]any) ([]models.TrustClaim, error)
}

// HealthChecker overrides the default enabled-flag health check.
type HealthChecker interface {
	Healthcheck(ctx context.Context) bool
}

// Info is plugin metadata for introspection
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Enabled     bool   `json:"enabled"`
}

// Base carries the metadata and configuration shared by all plugins. Embed it
// and implement GatherSignals.
type Base struct {
	name        string
	description string
	version     string
	enabled     bool
	config      map[string]any
}

// NewBase reads the optional "enabled" key from config; plugins are enabled by default.
func NewBase(name, description, version string, config map[string]any) Base {
	b := Base{
		name:        name,
		description: description,
		version:     version,
		enabled:     true,
		config:      config,
	}
	if config == nil {
		b.config = map[string]any{}
	}
	if v, ok := b.config["enabled"]; ok {
		b.enabled = cast.ToBool(v)
	}
	return b
}

func (b Base) Name() string        { return b.name }
func (b Base) Description() string { return b.description }
func (b Base) Version() string     { return b.version }
func (b Base) Enabled() bool       { return b.enabled }

// Config returns a config value, or nil
func (b Base) Config(key string) any { return b.config[key] }

// ConfigString returns a config value coerced to string
func (b Base) ConfigString(key, def string) string {
	if v, ok := b.config[key]; ok {
		if s := cast.ToString(v); s != "" {
			return s
		}
	}
	return def
}

// InfoOf returns metadata for v
func InfoOf(v Verifier) Info {
	return Info{
		Name:        v.Name(),
		Description: v.Description(),
		Version:     v.Version(),
		Enabled:     v.Enabled(),
	}
}

// Healthy runs v's health check, defaulting to its enabled flag
func Healthy(ctx context.Context, v Verifier) bool {
	if hc, ok := v.(HealthChecker); ok {
		return hc.Healthcheck(ctx)
	}
	return v.Enabled()
}

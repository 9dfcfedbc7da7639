package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/stoik/trustlayer/internal/models"
)

// Contribution is what one plugin produced during a pass
type Contribution[T any] struct {
	Plugin string
	Items  []T
}

// Contributions are ordered by plugin registration order
type Contributions[T any] []Contribution[T]

// Flatten concatenates all items, preserving plugin order then within-plugin order.
func (cs Contributions[T]) Flatten() []T {
	var out []T
	for _, c := range cs {
		out = append(out, c.Items...)
	}
	return out
}

// ByPlugin returns plugin name -> items
func (cs Contributions[T]) ByPlugin() map[string][]T {
	out := make(map[string][]T, len(cs))
	for _, c := range cs {
		out[c.Plugin] = c.Items
	}
	return out
}

// Registry holds plugins in registration order keyed by unique name. It is safe
// for concurrent passes; plugins must be stateless per call.
type Registry struct {
	mu      sync.RWMutex
	plugins []Verifier
	index   map[string]int
	logger  *slog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the registry logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		index:  make(map[string]int),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds v. Re-registering a name replaces the old instance in its
// original position.
func (r *Registry) Register(v Verifier) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := v.Name()
	if idx, ok := r.index[name]; ok {
		r.logger.Warn("replacing registered plugin", "plugin", name, "version", v.Version())
		r.plugins[idx] = v
		return
	}
	r.index[name] = len(r.plugins)
	r.plugins = append(r.plugins, v)
	r.logger.Info("registered plugin", "plugin", name, "version", v.Version(), "enabled", v.Enabled())
}

// Get returns the plugin registered under name
func (r *Registry) Get(name string) (Verifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.plugins[idx], true
}

// All returns every plugin in registration order
func (r *Registry) All() []Verifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Verifier, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Enabled returns enabled plugins in registration order
func (r *Registry) Enabled() []Verifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Verifier, 0, len(r.plugins))
	for _, p := range r.plugins {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

// List returns metadata for every registered plugin
func (r *Registry) List() []Info {
	all := r.All()
	out := make([]Info, 0, len(all))
	for _, p := range all {
		out = append(out, InfoOf(p))
	}
	return out
}

// Healthcheck runs every plugin's health check
func (r *Registry) Healthcheck(ctx context.Context) map[string]bool {
	all := r.All()
	out := make(map[string]bool, len(all))
	for _, p := range all {
		out[p.Name()] = Healthy(ctx, p)
	}
	return out
}

// GatherAllSignals runs GatherSignals on every enabled plugin sequentially. A
// failing plugin contributes an empty list and never aborts the pass.
func (r *Registry) GatherAllSignals(ctx context.Context, vc *models.VerificationContext) Contributions[models.TrustClaim] {
	plugins := r.Enabled()
	out := make(Contributions[models.TrustClaim], 0, len(plugins))
	for _, p := range plugins {
		claims, err := isolate(p.Name(), func() ([]models.TrustClaim, error) {
			return p.GatherSignals(ctx, vc)
		})
		if err != nil {
			r.logFailure(p.Name(), "gather_signals", err)
			claims = []models.TrustClaim{}
		}
		out = append(out, Contribution[models.TrustClaim]{Plugin: p.Name(), Items: claims})
	}
	return out
}

// GatherAllFindings runs GetFindings on every enabled plugin that provides
// findings. Plugins without findings contribute an empty list.
func (r *Registry) GatherAllFindings(ctx context.Context, vc *models.VerificationContext) Contributions[models.Finding] {
	plugins := r.Enabled()
	out := make(Contributions[models.Finding], 0, len(plugins))
	for _, p := range plugins {
		fp, ok := p.(FindingsProvider)
		if !ok {
			out = append(out, Contribution[models.Finding]{Plugin: p.Name(), Items: []models.Finding{}})
			continue
		}
		findings, err := isolate(p.Name(), func() ([]models.Finding, error) {
			return fp.GetFindings(ctx, vc)
		})
		if err != nil {
			r.logFailure(p.Name(), "get_findings", err)
			findings = []models.Finding{}
		}
		out = append(out, Contribution[models.Finding]{Plugin: p.Name(), Items: findings})
	}
	return out
}

// RequestVerification starts an interactive flow on the named plugin.
func (r *Registry) RequestVerification(ctx context.Context, name string, vc *models.VerificationContext, params map[string]any) (map[string]any, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("plugin %q not registered", name)
	}
	iv, ok := p.(InteractiveVerifier)
	if !ok {
		return nil, ErrUnsupported
	}
	return iv.RequestVerification(ctx, vc, params)
}

// CompleteVerification resumes an interactive flow on the named plugin.
func (r *Registry) CompleteVerification(ctx context.Context, name string, callbackData map[string]any) ([]models.TrustClaim, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("plugin %q not registered", name)
	}
	iv, ok := p.(InteractiveVerifier)
	if !ok {
		return nil, ErrUnsupported
	}
	return iv.CompleteVerification(ctx, callbackData)
}

func (r *Registry) logFailure(plugin, op string, err error) {
	attrs := []any{"plugin", plugin, "op", op, "error", err}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	r.logger.Error("plugin failed", attrs...)
}

// PanicError wraps a recovered plugin panic
type PanicError struct {
	Plugin string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("plugin %s panicked: %v", e.Plugin, e.Value)
}

func isolate[T any](plugin string, fn func() ([]T, error)) (items []T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			items = nil
			err = &PanicError{Plugin: plugin, Value: rec, Stack: debug.Stack()}
		}
	}()
	items, err = fn()
	if err == nil && items == nil {
		items = []T{}
	}
	return items, err
}

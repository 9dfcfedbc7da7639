package verifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoik/trustlayer/internal/models"
)

type stubPlugin struct {
	Base
	claims   []models.TrustClaim
	findings []models.Finding
	err      error
	panicMsg string
}

func (s *stubPlugin) GatherSignals(_ context.Context, _ *models.VerificationContext) ([]models.TrustClaim, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.claims, s.err
}

func (s *stubPlugin) GetFindings(_ context.Context, _ *models.VerificationContext) ([]models.Finding, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.findings, s.err
}

// claimsOnly has no findings method
type claimsOnly struct{ Base }

func (c claimsOnly) GatherSignals(_ context.Context, _ *models.VerificationContext) ([]models.TrustClaim, error) {
	return []models.TrustClaim{models.NewClaim(c.Name(), "info", "x", c.Name(), nil, 0.5)}, nil
}

func quietRegistry() *Registry {
	return NewRegistry(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func newStub(name string, cfg map[string]any) *stubPlugin {
	return &stubPlugin{Base: NewBase(name, name+" plugin", "1.0.0", cfg)}
}

func TestNewBaseEnabledDefault(t *testing.T) {
	assert.True(t, NewBase("a", "", "", nil).Enabled())
	assert.False(t, NewBase("a", "", "", map[string]any{"enabled": false}).Enabled())
	assert.False(t, NewBase("a", "", "", map[string]any{"enabled": "false"}).Enabled())
	assert.Equal(t, "x", NewBase("a", "", "", map[string]any{"k": "x"}).ConfigString("k", "d"))
	assert.Equal(t, "d", NewBase("a", "", "", nil).ConfigString("k", "d"))
}

func TestRegisterKeepsOrderAndReplacesInPlace(t *testing.T) {
	r := quietRegistry()
	r.Register(newStub("first", nil))
	r.Register(newStub("second", nil))
	r.Register(newStub("third", nil))

	replacement := &stubPlugin{Base: NewBase("second", "replacement", "2.0.0", nil)}
	r.Register(replacement)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{all[0].Name(), all[1].Name(), all[2].Name()})
	assert.Equal(t, "2.0.0", all[1].Version())

	got, ok := r.Get("second")
	require.True(t, ok)
	assert.Same(t, replacement, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestEnabledFiltersDisabled(t *testing.T) {
	r := quietRegistry()
	r.Register(newStub("on", nil))
	r.Register(newStub("off", map[string]any{"enabled": false}))

	enabled := r.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "on", enabled[0].Name())

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, Info{Name: "off", Description: "off plugin", Version: "1.0.0", Enabled: false}, infos[1])

	health := r.Healthcheck(context.Background())
	assert.True(t, health["on"])
	assert.False(t, health["off"])
}

func TestGatherIsolatesFailures(t *testing.T) {
	r := quietRegistry()

	good := newStub("good", nil)
	good.claims = []models.TrustClaim{models.NewClaim("good", "ok", "a.com", "good", nil, 0.9)}
	good.findings = []models.Finding{models.NewFinding("r1", "Rule", models.SeverityLow, -5, "d", "e", "fix")}

	failing := newStub("failing", nil)
	failing.err = errors.New("boom")

	panicking := newStub("panicking", nil)
	panicking.panicMsg = "nil map"

	r.Register(failing)
	r.Register(good)
	r.Register(panicking)
	r.Register(claimsOnly{Base: NewBase("claims-only", "", "1", nil)})

	vc := &models.VerificationContext{SenderEmail: "a@a.com"}

	signals := r.GatherAllSignals(context.Background(), vc)
	require.Len(t, signals, 4)
	byPlugin := signals.ByPlugin()
	assert.Empty(t, byPlugin["failing"])
	assert.NotNil(t, byPlugin["failing"])
	assert.Empty(t, byPlugin["panicking"])
	assert.Len(t, byPlugin["good"], 1)
	assert.Len(t, signals.Flatten(), 2)

	findings := r.GatherAllFindings(context.Background(), vc)
	require.Len(t, findings, 4)
	assert.Equal(t, "failing", findings[0].Plugin)
	flat := findings.Flatten()
	require.Len(t, flat, 1)
	assert.Equal(t, "r1", flat[0].RuleID)
	assert.Empty(t, findings.ByPlugin()["claims-only"])
}

func TestGatherPreservesOrder(t *testing.T) {
	r := quietRegistry()
	a := newStub("a", nil)
	a.findings = []models.Finding{{RuleID: "a1"}, {RuleID: "a2"}}
	b := newStub("b", nil)
	b.findings = []models.Finding{{RuleID: "b1"}}
	r.Register(a)
	r.Register(b)

	flat := r.GatherAllFindings(context.Background(), &models.VerificationContext{}).Flatten()
	ids := make([]string, len(flat))
	for i, f := range flat {
		ids[i] = f.RuleID
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids)
}

func TestInteractiveUnsupported(t *testing.T) {
	r := quietRegistry()
	r.Register(newStub("plain", nil))

	res, err := r.RequestVerification(context.Background(), "plain", &models.VerificationContext{}, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUnsupported)

	claims, err := r.CompleteVerification(context.Background(), "plain", nil)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = r.RequestVerification(context.Background(), "missing", nil, nil)
	assert.Error(t, err)
}

func TestConcurrentPasses(t *testing.T) {
	r := quietRegistry()
	p := newStub("p", nil)
	p.claims = []models.TrustClaim{models.NewClaim("p", "t", "s", "p", nil, 1)}
	r.Register(p)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := r.GatherAllSignals(context.Background(), &models.VerificationContext{})
			assert.Len(t, out.Flatten(), 1)
		}()
	}
	wg.Wait()
}

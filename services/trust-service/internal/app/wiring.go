package app

import (
	"log/slog"

	"github.com/stoik/trustlayer/internal/config"
	"github.com/stoik/trustlayer/internal/report"
	"github.com/stoik/trustlayer/internal/scoring"
	"github.com/stoik/trustlayer/internal/store"
	"github.com/stoik/trustlayer/internal/verifier"
	"github.com/stoik/trustlayer/internal/verifier/authresults"
	"github.com/stoik/trustlayer/internal/verifier/dnsrecords"
	"github.com/stoik/trustlayer/internal/verifier/heuristics"
)

// newResolver returns nil when DNS lookups are disabled, which leaves the DNS
// plugin registered but inert.
func newResolver(cfg *config.Config, logger *slog.Logger) (dnsrecords.Resolver, func()) {
	if !cfg.DNS.Enabled {
		logger.Info("dns lookups disabled")
		return nil, func() {}
	}
	var resolver dnsrecords.Resolver = dnsrecords.NewNetResolver(cfg.DNS.Server)
	if cfg.DNS.RedisAddr == "" {
		return resolver, func() {}
	}
	client := dnsrecords.NewRedisClient(cfg.DNS.RedisAddr, "", 0)
	logger.Info("dns answers cached in redis", "addr", cfg.DNS.RedisAddr, "ttl", cfg.DNS.CacheTTL)
	return dnsrecords.NewCachingResolver(resolver, client, cfg.DNS.CacheTTL, logger), func() { _ = client.Close() }
}

// newRegistry registers the built-in plugins in evaluation order
func newRegistry(cfg *config.Config, resolver dnsrecords.Resolver, logger *slog.Logger) *verifier.Registry {
	reg := verifier.NewRegistry(verifier.WithLogger(logger))
	reg.Register(authresults.New(cfg.Plugin(authresults.Name, map[string]any{
		"alignment": cfg.Auth.Alignment,
	})))
	reg.Register(dnsrecords.New(cfg.Plugin(dnsrecords.Name, map[string]any{
		"timeout": cfg.DNS.Timeout,
	}), resolver, logger))
	reg.Register(heuristics.New(cfg.Plugin(heuristics.Name, nil)))
	return reg
}

// newGenerator wires the registry, engine and repository. repo may be nil.
func newGenerator(cfg *config.Config, repo store.Repository, logger *slog.Logger) (*report.Generator, func()) {
	resolver, closeResolver := newResolver(cfg, logger)
	reg := newRegistry(cfg, resolver, logger)
	return report.NewGenerator(reg, scoring.NewEngine(), repo, logger), closeResolver
}

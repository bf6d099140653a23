// Package app wires configuration into a ready optimizer for the commands.
package app

import (
	"go.uber.org/zap"

	"github.com/hamed0406/dnsoptimizer/internal/catalog"
	"github.com/hamed0406/dnsoptimizer/internal/config"
	"github.com/hamed0406/dnsoptimizer/internal/notify"
	"github.com/hamed0406/dnsoptimizer/internal/optimizer"
	"github.com/hamed0406/dnsoptimizer/internal/probe"
	"github.com/hamed0406/dnsoptimizer/internal/resolver"
)

// Catalog loads CatalogFile, or the built-in catalog when it is unset.
func Catalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.CatalogFile)
}

// Build returns a started optimizer. extra notifiers receive every event
// alongside the optional Slack webhook. Callers must Close it, which also
// closes the notifiers.
func Build(cfg config.Config, logger *zap.Logger, extra ...notify.Notifier) (*optimizer.Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cat, err := Catalog(cfg)
	if err != nil {
		return nil, err
	}

	engine := probe.NewEngine(logger, probe.NewPinger(cfg.ProbeMethod), cfg.ProbeTimeout, cfg.ProbeCount)
	reader, applier := resolver.New(resolver.Options{
		Platform:   cfg.Platform,
		ResolvConf: cfg.ResolvConf,
		Interface:  cfg.Interface,
		Logger:     logger,
	})

	notifiers := notify.Multi(extra)
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		// Webhook calls leave the worker so a slow endpoint cannot stall it.
		notifiers = append(notifiers, notify.NewAsync(logger, s, 16, 0))
	}

	o := optimizer.New(logger, cat.Servers(), engine, reader, applier, notifiers)
	o.Start()
	logger.Info("optimizer_started",
		zap.Int("servers", len(cat.Servers())),
		zap.String("probe_method", cfg.ProbeMethod),
		zap.String("platform", resolver.Platform(cfg.Platform)),
	)
	return o, nil
}

// ResolvConfPath is the file to check for write access, empty on the
// command platform.
func ResolvConfPath(cfg config.Config) string {
	if resolver.Platform(cfg.Platform) == resolver.PlatformFile {
		return cfg.ResolvConf
	}
	return ""
}

// Package config loads router settings from the environment.
package config

import (
	"fmt"
	"github.com/caarlos0/env/v11"
	"github.com/saylorsolutions/typebus/router"
	"log/slog"
)

// Config holds router settings that can be supplied through environment variables.
type Config struct {
	Identifier        string             `env:"TYPEBUS_IDENTIFIER"`
	ErrorPolicy       router.ErrorPolicy `env:"TYPEBUS_ERROR_POLICY"        envDefault:"collect"`
	InterfaceDispatch bool               `env:"TYPEBUS_INTERFACE_DISPATCH"  envDefault:"false"`
	HandlerPrefix     string             `env:"TYPEBUS_HANDLER_PREFIX"      envDefault:"Handle"`
	ProducerPrefix    string             `env:"TYPEBUS_PRODUCER_PREFIX"     envDefault:"Produce"`
	LogLevel          slog.Level         `env:"TYPEBUS_LOG_LEVEL"           envDefault:"INFO"`
}

// Load reads a [Config] from the environment, applying defaults for anything that isn't set.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// HierarchyPolicy returns the [router.HierarchyPolicy] selected by the config.
func (c Config) HierarchyPolicy() router.HierarchyPolicy {
	if c.InterfaceDispatch {
		return router.EmbeddedAndInterfaces
	}
	return router.EmbeddedTypes
}

// Options converts the config to [router.Option] values that can be passed to [router.New].
// The logger is optional.
func (c Config) Options(logger *slog.Logger) ([]router.Option, error) {
	finderOpts := []router.FinderOption{
		router.HandlerPrefix(c.HandlerPrefix),
		router.ProducerPrefix(c.ProducerPrefix),
	}
	if c.InterfaceDispatch {
		finderOpts = append(finderOpts, router.AllowInterfaceEvents())
	}
	finder, err := router.NewMethodFinder(finderOpts...)
	if err != nil {
		return nil, fmt.Errorf("handler finder: %w", err)
	}
	opts := []router.Option{
		router.WithErrorPolicy(c.ErrorPolicy),
		router.WithHierarchyPolicy(c.HierarchyPolicy()),
		router.WithHandlerFinder(finder),
	}
	if len(c.Identifier) > 0 {
		opts = append(opts, router.WithIdentifier(c.Identifier))
	}
	if logger != nil {
		opts = append(opts, router.WithLogger(logger))
	}
	return opts, nil
}

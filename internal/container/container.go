// Package container wires configuration into the schema, translator, database
// and service layers.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/satishbabariya/celquery/internal/adapters/database"
	"github.com/satishbabariya/celquery/internal/adapters/telemetry"
	"github.com/satishbabariya/celquery/internal/cache"
	"github.com/satishbabariya/celquery/internal/config"
	"github.com/satishbabariya/celquery/internal/debug"
	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/core/filter/translator"
	"github.com/satishbabariya/celquery/internal/core/query/compiler"
	"github.com/satishbabariya/celquery/internal/core/query/executor"
	"github.com/satishbabariya/celquery/internal/core/schema"
	"github.com/satishbabariya/celquery/internal/core/schema/parser"
	"github.com/satishbabariya/celquery/internal/service"
)

// Container holds all application dependencies.
type Container struct {
	config *config.Config
	logger *slog.Logger

	registry   *schema.MetadataRegistry
	translator *translator.Translator

	// Database and services are only built by Connect.
	dbAdapter database.Adapter
	telemetry telemetry.Telemetry
	services  *service.Registry
}

// NewContainer loads the schema named by cfg and builds the translator. It
// does not touch the database.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	registry, err := LoadSchema(ctx, cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	return NewContainerWithRegistry(cfg, registry), nil
}

// NewContainerWithRegistry builds a container around an already loaded registry.
func NewContainerWithRegistry(cfg *config.Config, registry *schema.MetadataRegistry) *Container {
	logger := debug.Logger()
	return &Container{
		config:   cfg,
		logger:   logger,
		registry: registry,
		translator: translator.New(registry,
			translator.WithTypeCheck(cfg.Translate.TypeCheck),
			translator.WithLegacyTautologies(cfg.Translate.LegacyTautologies),
			translator.WithLogger(logger),
		),
	}
}

// LoadSchema parses the schema file at path into a fresh registry.
func LoadSchema(ctx context.Context, path string) (*schema.MetadataRegistry, error) {
	parsed, err := parser.NewParserWithFs(config.AppFs).ParseFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	registry := schema.NewMetadataRegistry()
	if err := registry.LoadFromSchema(parsed); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return registry, nil
}

// Connect opens the database and builds the entity services.
func (c *Container) Connect(ctx context.Context) error {
	adapter, err := database.NewAdapter(database.Config{
		Provider:       c.config.Database.Provider,
		URL:            c.config.Database.URL,
		MaxConnections: c.config.Database.MaxConnections,
		MaxIdleTime:    c.config.Database.MaxIdleTime,
		ConnectTimeout: c.config.Database.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	return c.Attach(adapter)
}

// Attach builds the entity services on top of an already connected adapter.
func (c *Container) Attach(adapter database.Adapter) error {
	tel, err := telemetry.NewTelemetry(&telemetry.Config{Type: c.config.Telemetry.Type})
	if err != nil {
		return err
	}

	var lru *cache.LRU[*filter.Translation]
	if c.config.Cache.Size > 0 {
		lru = cache.NewLRU[*filter.Translation](c.config.Cache.Size, c.config.Cache.TTL)
	}

	deps := service.Deps{
		Registry:   c.registry,
		Translator: c.translator,
		Compiler:   compiler.NewSQLCompiler(adapter.GetDialect()),
		Executor:   executor.NewQueryExecutor(adapter, tel),
		Cache:      lru,
		Telemetry:  tel,
		Logger:     c.logger,
	}

	services, err := service.NewRegistry(deps, entityConfigs(c.config))
	if err != nil {
		return err
	}

	c.dbAdapter = adapter
	c.telemetry = tel
	c.services = services
	c.logger.Debug("container ready", "dialect", adapter.GetDialect(), "entities", services.Names())
	return nil
}

func entityConfigs(cfg *config.Config) []service.EntityConfig {
	names := make([]string, 0, len(cfg.Entities))
	for name := range cfg.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]service.EntityConfig, 0, len(names))
	for _, name := range names {
		e := cfg.Entities[name]
		out = append(out, service.EntityConfig{Name: name, Model: e.Model, Blacklist: e.Blacklist})
	}
	return out
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config {
	return c.config
}

// Registry returns the schema registry.
func (c *Container) Registry() *schema.MetadataRegistry {
	return c.registry
}

// Translator returns the filter translator.
func (c *Container) Translator() *translator.Translator {
	return c.translator
}

// Services returns the entity services, nil before Connect.
func (c *Container) Services() *service.Registry {
	return c.services
}

// Telemetry returns the telemetry adapter, nil before Connect.
func (c *Container) Telemetry() telemetry.Telemetry {
	return c.telemetry
}

// Close cleans up resources.
func (c *Container) Close(ctx context.Context) error {
	if c.dbAdapter != nil {
		return c.dbAdapter.Disconnect(ctx)
	}
	return nil
}

// Package config loads celquery configuration from .celquery.yaml, the
// environment and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration and schema files are read from.
var AppFs = afero.NewOsFs()

// FileName is the configuration file name searched for, without extension.
const FileName = ".celquery"

// EnvPrefix prefixes environment overrides, e.g. CELQUERY_DATABASE_URL.
const EnvPrefix = "CELQUERY"

// Config holds the application configuration.
type Config struct {
	SchemaPath      string                  `mapstructure:"schema_path" yaml:"schema_path"`
	RequiredVersion string                  `mapstructure:"required_version" yaml:"required_version,omitempty"`
	Debug           bool                    `mapstructure:"debug" yaml:"debug,omitempty"`
	Database        DatabaseConfig          `mapstructure:"database" yaml:"database"`
	Server          ServerConfig            `mapstructure:"server" yaml:"server"`
	Translate       TranslateConfig         `mapstructure:"translate" yaml:"translate"`
	Cache           CacheConfig             `mapstructure:"cache" yaml:"cache"`
	Telemetry       TelemetryConfig         `mapstructure:"telemetry" yaml:"telemetry"`
	Entities        map[string]EntityConfig `mapstructure:"entities" yaml:"entities,omitempty"`

	// File is the configuration file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	Provider       string `mapstructure:"provider" yaml:"provider"`
	URL            string `mapstructure:"url" yaml:"url"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections,omitempty"`
	MaxIdleTime    int    `mapstructure:"max_idle_time" yaml:"max_idle_time,omitempty"`
	ConnectTimeout int    `mapstructure:"connect_timeout" yaml:"connect_timeout,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout,omitempty"`
}

// TranslateConfig tunes the filter translator.
type TranslateConfig struct {
	TypeCheck         bool `mapstructure:"type_check" yaml:"type_check"`
	LegacyTautologies bool `mapstructure:"legacy_tautologies" yaml:"legacy_tautologies"`
}

// CacheConfig sizes the translation cache. Size 0 disables caching.
type CacheConfig struct {
	Size int           `mapstructure:"size" yaml:"size"`
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`
}

// TelemetryConfig selects the metrics backend.
type TelemetryConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
}

// EntityConfig exposes a model under an entity name.
type EntityConfig struct {
	Model     string   `mapstructure:"model" yaml:"model"`
	Blacklist []string `mapstructure:"blacklist" yaml:"blacklist,omitempty"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		SchemaPath: "schema.cq",
		Database: DatabaseConfig{
			Provider:       "sqlite",
			URL:            "celquery.db",
			MaxConnections: 10,
			ConnectTimeout: 10,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Cache:     CacheConfig{Size: 512, TTL: 10 * time.Minute},
		Telemetry: TelemetryConfig{Type: "prometheus"},
	}
}

// Load reads configuration. When file is empty the working directory, $HOME and
// $HOME/.config/celquery are searched for .celquery.yaml; a missing file is not
// an error. DATABASE_URL fills database.url when nothing else sets it.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetFs(AppFs)

	def := Default()
	v.SetDefault("schema_path", def.SchemaPath)
	v.SetDefault("required_version", "")
	v.SetDefault("debug", false)
	v.SetDefault("database.provider", def.Database.Provider)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", def.Database.MaxConnections)
	v.SetDefault("database.max_idle_time", def.Database.MaxIdleTime)
	v.SetDefault("database.connect_timeout", def.Database.ConnectTimeout)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)
	v.SetDefault("translate.type_check", false)
	v.SetDefault("translate.legacy_tautologies", false)
	v.SetDefault("cache.size", def.Cache.Size)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("telemetry.type", def.Telemetry.Type)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	loadDotEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.URL == "" && strings.HasPrefix(cfg.Database.Provider, "sqlite") {
		cfg.Database.URL = def.Database.URL
	}
	return cfg, cfg.Validate()
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.SchemaPath == "" {
		return fmt.Errorf("schema_path must be set")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size)
	}
	for name, e := range c.Entities {
		if e.Model == "" {
			return fmt.Errorf("entities.%s.model must be set", name)
		}
	}
	return nil
}

// EntityNames returns the configured entity names, sorted.
func (c *Config) EntityNames() []string {
	names := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := AppFs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(AppFs, path, data, 0o644)
}

func searchPaths() []string {
	paths := []string{"."}
	if home, err := homedir.Dir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", "celquery"))
	}
	return paths
}

// loadDotEnv loads .env and then .env.local, the latter overriding.
func loadDotEnv() {
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}

package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Nats          NatsConfig          `mapstructure:"nats"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Render        RenderConfig        `mapstructure:"render"`
}

type NatsConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
	// Subject may contain wildcards, e.g. "notifyhub.events.>".
	Subject string `mapstructure:"subject" yaml:"subject"`
	Queue   string `mapstructure:"queue" yaml:"queue"`

	// RelationshipSubject carries link/unlink messages for the entity graph.
	RelationshipSubject string `mapstructure:"relationship_subject" yaml:"relationship_subject"`
}

type DatabaseConfig struct {
	Driver     string                  `mapstructure:"driver"` // postgres, pgx, sqlite
	Host       string                  `mapstructure:"host"`
	Port       int                     `mapstructure:"port"`
	User       string                  `mapstructure:"user"`
	Password   string                  `mapstructure:"password"`
	DBName     string                  `mapstructure:"dbname"`
	SSLMode    string                  `mapstructure:"sslmode"`
	Path       string                  `mapstructure:"path"` // sqlite only
	Pool       DatabasePoolConfig      `mapstructure:"pool"`
	Migrations DatabaseMigrationConfig `mapstructure:"migrations"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	// GraphCacheTTLSeconds bounds how stale a cached super/sub lookup may be.
	GraphCacheTTLSeconds int `mapstructure:"graph_cache_ttl_seconds"`
}

type ServerConfig struct {
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Environment    string   `mapstructure:"environment"`
	Databases      []string `mapstructure:"databases"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CatalogConfig lists the reference data seeded by `system migrate`.
type CatalogConfig struct {
	Mediums []CatalogEntry `mapstructure:"mediums"`
	Actions []CatalogEntry `mapstructure:"actions"`
}

type CatalogEntry struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	Description string `mapstructure:"description"`
	Renderer    string `mapstructure:"renderer"`
}

type RenderConfig struct {
	// Routes maps a route name to a path pattern containing "{id}",
	// e.g. user_page: "/user/{id}/".
	Routes map[string]string `mapstructure:"routes"`
	// Kinds names entities of a type from a column of the embedding
	// application's own table, e.g. user: {table: users, column: username}.
	Kinds map[string]KindSource `mapstructure:"kinds"`
}

type KindSource struct {
	Table  string `mapstructure:"table"`
	Column string `mapstructure:"column"`
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "", "postgres", "pgx":
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	for _, m := range c.Catalog.Mediums {
		if m.Name == "" {
			return fmt.Errorf("catalog.mediums: name is required")
		}
	}
	for _, a := range c.Catalog.Actions {
		if a.Name == "" {
			return fmt.Errorf("catalog.actions: name is required")
		}
	}

	for kind, src := range c.Render.Kinds {
		if src.Table == "" || src.Column == "" {
			return fmt.Errorf("render.kinds.%s: table and column are required", kind)
		}
	}

	return nil
}

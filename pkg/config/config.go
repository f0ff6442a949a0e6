package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "RUNMONITOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultDatabaseDriver is the default storage medium.
	DefaultDatabaseDriver = "sqlite"

	// DefaultSQLitePath is the default embedded database file.
	DefaultSQLitePath = "app.db"

	// DefaultSimulationInterval is the pause between scheduled runs.
	DefaultSimulationInterval = "30s"

	// DefaultHistoryLimit is the number of runs shown in history views.
	DefaultHistoryLimit = 50
)

// DefaultParams are the generation parameters used when none are configured.
var DefaultParams = generator.Params{
	MinRecords: 10,
	MaxRecords: 30,
	OKRatio:    0.75,
	WarnRatio:  0.2,
}

// Config is the root configuration for runmonitor.
type Config struct {
	Global     GlobalConfig     `yaml:"global" mapstructure:"global"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Simulation SimulationConfig `yaml:"simulation" mapstructure:"simulation"`
	API        APIConfig        `yaml:"api" mapstructure:"api"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// SimulationConfig contains the default generation parameters and the
// schedule for recurring runs.
type SimulationConfig struct {
	MinRecords int     `yaml:"min_records" mapstructure:"min_records"`
	MaxRecords int     `yaml:"max_records" mapstructure:"max_records"`
	OKRatio    float64 `yaml:"ok_ratio" mapstructure:"ok_ratio"`
	WarnRatio  float64 `yaml:"warn_ratio" mapstructure:"warn_ratio"`

	// Seed makes the random source deterministic. Zero seeds from entropy.
	Seed     uint64 `yaml:"seed,omitempty" mapstructure:"seed"`
	Interval string `yaml:"interval,omitempty" mapstructure:"interval"`

	// Atomic persists a run and its records in a single transaction.
	Atomic bool `yaml:"atomic" mapstructure:"atomic"`
}

// Params returns the configured generation parameters.
func (s *SimulationConfig) Params() generator.Params {
	return generator.Params{
		MinRecords: s.MinRecords,
		MaxRecords: s.MaxRecords,
		OKRatio:    s.OKRatio,
		WarnRatio:  s.WarnRatio,
	}
}

// IntervalDuration parses the scheduling interval.
func (s *SimulationConfig) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("parsing simulation interval: %w", err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("simulation interval must be positive, got %s", d)
	}

	return d, nil
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// Load reads the configuration file at path, if any, and applies defaults
// and RUNMONITOR_* environment overrides. An empty path yields the defaults
// plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every key so that environment
// overrides apply even when the key is absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)

	v.SetDefault("database.driver", DefaultDatabaseDriver)
	v.SetDefault("database.sqlite.path", DefaultSQLitePath)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "runmonitor")
	v.SetDefault("database.postgres.ssl_mode", "disable")

	v.SetDefault("simulation.min_records", DefaultParams.MinRecords)
	v.SetDefault("simulation.max_records", DefaultParams.MaxRecords)
	v.SetDefault("simulation.ok_ratio", DefaultParams.OKRatio)
	v.SetDefault("simulation.warn_ratio", DefaultParams.WarnRatio)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.interval", DefaultSimulationInterval)
	v.SetDefault("simulation.atomic", false)

	v.SetDefault("api.server.listen", DefaultAPIListen)
	v.SetDefault("api.server.cors_origins", []string{})
	v.SetDefault("api.server.rate_limit.enabled", false)
	v.SetDefault("api.server.rate_limit.requests_per_minute", DefaultRequestsPerMinute)
	v.SetDefault("api.history_limit", DefaultHistoryLimit)

	v.SetDefault("export.concurrency", DefaultExportConcurrency)
	v.SetDefault("export.history_limit", DefaultHistoryLimit)
	v.SetDefault("export.s3.enabled", false)
	v.SetDefault("export.s3.endpoint_url", "")
	v.SetDefault("export.s3.region", "")
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.access_key_id", "")
	v.SetDefault("export.s3.secret_access_key", "")
	v.SetDefault("export.s3.force_path_style", false)
	v.SetDefault("export.s3.prefix", DefaultExportPrefix)
	v.SetDefault("export.s3.storage_class", "")
	v.SetDefault("export.s3.acl", "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}

	if err := c.Simulation.Params().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if _, err := c.Simulation.IntervalDuration(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if c.API.HistoryLimit <= 0 {
		return fmt.Errorf("api: history_limit must be positive, got %d", c.API.HistoryLimit)
	}

	if c.API.Server.RateLimit.Enabled && c.API.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("api: rate_limit.requests_per_minute must be positive")
	}

	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	return nil
}

// ValidateDatabase checks the database section only.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database: sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database: postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database: postgres.database is required")
		}
	default:
		return fmt.Errorf("database: unsupported driver %q", c.Database.Driver)
	}

	return nil
}

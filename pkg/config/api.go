package config

const (
	// DefaultAPIListen is the default HTTP listen address.
	DefaultAPIListen = ":8080"

	// DefaultRequestsPerMinute is the default per-IP rate limit.
	DefaultRequestsPerMinute = 120
)

// APIConfig contains all API server configuration.
type APIConfig struct {
	Server       APIServerConfig `yaml:"server" mapstructure:"server"`
	HistoryLimit int             `yaml:"history_limit" mapstructure:"history_limit"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

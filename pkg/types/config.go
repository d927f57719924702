package types

import "time"

// HTTPConfig holds settings for requests to the E-utilities API.
type HTTPConfig struct {
	// Timeout bounds each individual request attempt.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "get-papers-list/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxAttempts is the total number of attempts per request, including the
	// first one (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// Backoff is the base retry delay; attempt n waits n*Backoff (default 1s).
	Backoff time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`
}

// NCBIConfig identifies the E-utilities endpoint and the caller.
type NCBIConfig struct {
	// BaseURL is the E-utilities root, without a trailing slash.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey raises the NCBI rate ceiling from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email and Tool are sent with each request as NCBI asks of API clients.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
	Tool  string `json:"tool" yaml:"tool" mapstructure:"tool"`

	// RequestDelay is the minimum interval between requests. Zero selects
	// 340ms, or 100ms when APIKey is set.
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay" mapstructure:"request_delay"`
}

// CacheConfig holds settings for the on-disk record cache.
type CacheConfig struct {
	// Dir is the cache root. Empty selects the per-user cache directory.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// TTL is how long a cached detail document stays valid (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// Disabled bypasses the cache for reads and writes.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// StoreConfig holds settings for the SQLite run history.
type StoreConfig struct {
	// Path is the database file. Empty disables the history store.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every setting of a get-papers-list run.
type Config struct {
	HTTP  HTTPConfig  `json:"http" yaml:"http" mapstructure:"http"`
	NCBI  NCBIConfig  `json:"ncbi" yaml:"ncbi" mapstructure:"ncbi"`
	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`
	Store StoreConfig `json:"store" yaml:"store" mapstructure:"store"`
	Log   LogConfig   `json:"log" yaml:"log" mapstructure:"log"`
}

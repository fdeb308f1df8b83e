// Package config defines service configuration structures and loading hooks.
package config

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ConsensusRatio is the share of expected confirmations required to
	// finalize a match.
	ConsensusRatio float64 `koanf:"consensus_ratio"`

	// FinalizeRetries bounds whole-batch retries of a failed
	// finalization write.
	FinalizeRetries int `koanf:"finalize_retries"`

	// FinalizeBackoffMS is the delay between finalization retries.
	FinalizeBackoffMS int `koanf:"finalize_backoff_ms"`

	// StoreBackend selects the document store: memory or postgres.
	StoreBackend string `koanf:"store_backend"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `koanf:"postgres_dsn"`
}

// New returns the configuration defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":8080",
		ConsensusRatio:    0.75,
		FinalizeRetries:   3,
		FinalizeBackoffMS: 200,
		StoreBackend:      StoreMemory,
	}
}

package testsupport

import (
	"path/filepath"
	"testing"

	"callscore/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.Telemetry.Enabled = false
	cfg.Telemetry.Listen = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithBrokerURL sets the message broker URL on the test config.
func WithBrokerURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Broker.URL = url
	}
}

// WithScoring replaces the scoring thresholds on the test config.
func WithScoring(scoring config.Scoring) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scoring = scoring
	}
}

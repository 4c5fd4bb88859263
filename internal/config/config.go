package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Broker contains the AMQP transport settings for task dispatch.
type Broker struct {
	URL         string `toml:"url"`
	Exchange    string `toml:"exchange"`
	Queue       string `toml:"queue"`
	RoutingKey  string `toml:"routing_key"`
	ConsumerTag string `toml:"consumer_tag"`
	Prefetch    int    `toml:"prefetch"`
}

// Transcriber contains the speech recognition service settings. The worker
// posts each call's file URL there and receives the diarized transcript.
type Transcriber struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Telemetry contains the Prometheus endpoint settings.
type Telemetry struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// CountBand maps an occurrence count to a 0..1 satisfaction value.
// Counts at or below FullAt earn full credit, counts at or above ZeroAt earn
// none, and counts in between interpolate linearly.
type CountBand struct {
	FullAt int `toml:"full_at"`
	ZeroAt int `toml:"zero_at"`
}

// RatioBand maps a percentage ratio to a 0..1 satisfaction value using a
// trapezoid: full credit inside [FullLow, FullHigh], none outside
// [ZeroBelow, ZeroAbove], linear on the shoulders.
type RatioBand struct {
	ZeroBelow float64 `toml:"zero_below"`
	FullLow   float64 `toml:"full_low"`
	FullHigh  float64 `toml:"full_high"`
	ZeroAbove float64 `toml:"zero_above"`
}

// Scoring holds the threshold functions for the non-dictionary criteria.
// The defaults reproduce the behavior the platform shipped with; projects
// tune them per deployment rather than per call.
type Scoring struct {
	SpeechRateRatio RatioBand `toml:"speech_rate_ratio"`
	CallHolds       CountBand `toml:"call_holds"`
	SilencePauses   CountBand `toml:"silence_pauses"`
	Interruptions   CountBand `toml:"interruptions"`
}

// Config is the root configuration for both the CLI and the daemon.
type Config struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Broker      Broker      `toml:"broker"`
	Transcriber Transcriber `toml:"transcriber"`
	Telemetry   Telemetry   `toml:"telemetry"`
	Scoring     Scoring     `toml:"scoring"`
}

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "callscore", "config.toml"), nil
}

// Load reads configuration from path (or the default location when path is
// empty), layering the file over built-in defaults. A missing file is not an
// error; the defaults are returned with created=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", false, err
		}
		resolved = defaultPath
	}
	resolved = expandPath(resolved)

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.applyEnvOverrides()
		cfg.normalize()
		return &cfg, resolved, false, nil
	case err != nil:
		return nil, resolved, false, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, resolved, false, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	return &cfg, resolved, true, nil
}

// WriteSample writes the embedded sample config to path, refusing to clobber
// an existing file.
func WriteSample(path string) error {
	path = expandPath(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories when absent.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "callscore.db")
}

func (c *Config) applyEnvOverrides() {
	// The broker URL carries credentials, so the environment wins over the
	// config file.
	if url := strings.TrimSpace(os.Getenv("RABBITMQ_URL")); url != "" {
		c.Broker.URL = url
	}
}

func (c *Config) normalize() {
	c.DataDir = expandPath(c.DataDir)
	c.LogDir = expandPath(c.LogDir)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.Broker.RoutingKey == "" {
		c.Broker.RoutingKey = c.Broker.Queue
	}
}

func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"callscore/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, created, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if created {
		t.Fatal("expected created=false for missing file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if cfg.Broker.Queue != "task_queue" {
		t.Fatalf("unexpected default queue: %q", cfg.Broker.Queue)
	}
	if cfg.Scoring.SpeechRateRatio.FullLow != 80 || cfg.Scoring.SpeechRateRatio.FullHigh != 120 {
		t.Fatalf("unexpected default speech rate band: %+v", cfg.Scoring.SpeechRateRatio)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/tmp/callscore-test"
log_level = "DEBUG"

[broker]
queue = "scoring_tasks"

[scoring.call_holds]
full_at = 1
zero_at = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, created, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !created {
		t.Fatal("expected created=true")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected normalized log level, got %q", cfg.LogLevel)
	}
	if cfg.Broker.Queue != "scoring_tasks" {
		t.Fatalf("expected overridden queue, got %q", cfg.Broker.Queue)
	}
	if cfg.Broker.RoutingKey != "task" {
		t.Fatalf("expected default routing key preserved, got %q", cfg.Broker.RoutingKey)
	}
	if cfg.Scoring.CallHolds.ZeroAt != 5 {
		t.Fatalf("expected overridden call holds band, got %+v", cfg.Scoring.CallHolds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRejectsBadBands(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.CallHolds = config.CountBand{FullAt: 3, ZeroAt: 2}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted count band")
	}

	cfg = config.Default()
	cfg.Scoring.SpeechRateRatio = config.RatioBand{ZeroBelow: 100, FullLow: 80, FullHigh: 120, ZeroAbove: 200}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unordered ratio band")
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}

	cfg, _, created, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !created {
		t.Fatal("expected sample config to be read")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

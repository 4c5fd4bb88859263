package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir must be set")
	}
	if strings.TrimSpace(c.LogDir) == "" {
		return errors.New("log_dir must be set")
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}
	if err := c.validateBroker(); err != nil {
		return err
	}
	if c.Transcriber.TimeoutSeconds < 0 {
		return errors.New("transcriber.timeout_seconds must not be negative")
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	return c.validateScoring()
}

func (c *Config) validateBroker() error {
	if c.Broker.Prefetch < 0 {
		return errors.New("broker.prefetch must not be negative")
	}
	if strings.TrimSpace(c.Broker.Queue) == "" {
		return errors.New("broker.queue must be set")
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	if !c.Telemetry.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Telemetry.Listen) == "" {
		return errors.New("telemetry.listen must be set when telemetry.enabled is true")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if err := c.Scoring.SpeechRateRatio.validate("scoring.speech_rate_ratio"); err != nil {
		return err
	}
	for name, band := range map[string]CountBand{
		"scoring.call_holds":     c.Scoring.CallHolds,
		"scoring.silence_pauses": c.Scoring.SilencePauses,
		"scoring.interruptions":  c.Scoring.Interruptions,
	} {
		if err := band.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (b CountBand) validate(name string) error {
	if b.FullAt < 0 {
		return fmt.Errorf("%s.full_at must not be negative", name)
	}
	if b.ZeroAt <= b.FullAt {
		return fmt.Errorf("%s.zero_at must be greater than full_at", name)
	}
	return nil
}

func (b RatioBand) validate(name string) error {
	if b.ZeroBelow > b.FullLow || b.FullLow > b.FullHigh || b.FullHigh > b.ZeroAbove {
		return fmt.Errorf("%s bands must be ordered zero_below <= full_low <= full_high <= zero_above", name)
	}
	return nil
}

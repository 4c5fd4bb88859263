// Package config loads and validates the callscore TOML configuration,
// including the tunable scoring thresholds used by the calculator.
package config

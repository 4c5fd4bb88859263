// Package logging constructs the slog loggers used across callscore and
// carries task correlation fields through contexts.
package logging

package shared

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// SetupLogger writes human readable log lines to stderr
func SetupLogger(debug bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// SetupStructuredLogger writes JSON log lines to stderr
func SetupStructuredLogger(debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(os.Stderr).
		Level(level(debug)).
		With().
		Timestamp().
		Str("service", "pokerrating").
		Logger()
}

// NewLogger picks the console or JSON logger
func NewLogger(debug, json bool) zerolog.Logger {
	if json {
		return SetupStructuredLogger(debug)
	}
	return SetupLogger(debug)
}

// Package logging builds the zerolog loggers used by bibsync commands.
//
// Diagnostics (skipped items, request tracing, publish details) go to stderr
// through the logger; command results go to stdout through the CLI.
//
//	log := logging.New(logging.Config{Level: "debug"}, os.Stderr)
//	log.Warn().Str("item", key).Err(err).Msg("skipped item")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration options.
type Config struct {
	// Level is the minimum level to output (trace, debug, info, warn, error).
	Level string
	// Format is "console", "json" or "" to auto-detect from the terminal.
	Format string
	// NoColor disables color in console output.
	NoColor bool
}

// ConfigFromEnv reads LOG_LEVEL, LOG_FORMAT and NO_COLOR.
func ConfigFromEnv() Config {
	cfg := Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		NoColor: os.Getenv("NO_COLOR") != "",
	}
	if cfg.Level == "" && os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	return cfg
}

// New creates a logger writing to w.
func New(cfg Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
		if isTerminal(w) {
			format = "console"
		}
	}

	if format == "console" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.NoColor,
		}
	}

	level := ParseLevel(cfg.Level)
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel converts a level name, defaulting to info for empty or unknown names.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

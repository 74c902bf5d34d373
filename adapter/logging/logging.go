// Package logging builds the structured logger handed to engine components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	// Level is one of DEBUG, INFO, WARN or ERROR, in any case.
	Level string `gedbql:"level"`
	// Format is text or json.
	Format    string `gedbql:"format"`
	AddSource bool   `gedbql:"add_source"`
	// Output defaults to standard error.
	Output io.Writer `gedbql:"-"`
}

// New returns a logger for cfg. Empty fields take the INFO level and the
// text format.
func New(cfg Config) (*slog.Logger, error) {
	level := slog.LevelInfo
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("log format %q: must be text or json", cfg.Format)
	}
	return slog.New(handler), nil
}

// Discard returns a logger dropping every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

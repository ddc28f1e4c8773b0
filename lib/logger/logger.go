// Package logger builds the process logger and carries it on the context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

type contextKey string

const loggerKey contextKey = "logger"

// Config selects the logger's level, output format and optional build log.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is one of text, json, logfmt. Empty means text.
	Format string
	// BuildLog, when set, receives a copy of every record.
	BuildLog string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a logger writing through charmbracelet/log. extra, if not nil,
// receives every record as well (the OpenTelemetry log bridge).
func New(cfg Config, extra slog.Handler) (*slog.Logger, error) {
	level := charmlog.InfoLevel
	if cfg.Level != "" {
		l, err := charmlog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	console := charmlog.NewWithOptions(out, charmlog.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
	})

	if extra == nil && cfg.BuildLog == "" {
		return slog.New(console), nil
	}
	return slog.New(NewBuildLogHandler(console, extra, cfg.BuildLog)), nil
}

func parseFormat(format string) (charmlog.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return charmlog.TextFormatter, nil
	case "json":
		return charmlog.JSONFormatter, nil
	case "logfmt":
		return charmlog.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", format)
	}
}

// AddToContext adds a logger to the context
func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or returns default
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

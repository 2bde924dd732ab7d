package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gamesort/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Console receives human or JSON output per Format. Nil means stderr.
	Console io.Writer
	// FilePath, when set, receives a JSON copy of every record at info or
	// below regardless of Level, so the log viewer has history to filter.
	FilePath    string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	consoleLevel := new(slog.LevelVar)
	consoleLevel.Set(level)
	addSource := opts.Development || level <= slog.LevelDebug

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	console, err := newFormatHandler(opts.Format, out, consoleLevel, addSource)
	if err != nil {
		return nil, err
	}
	if opts.FilePath == "" {
		return slog.New(console), nil
	}

	file, err := openLogFile(opts.FilePath)
	if err != nil {
		return nil, err
	}
	fileLevel := new(slog.LevelVar)
	fileLevel.Set(min(level, slog.LevelInfo))
	return slog.New(TeeHandler(console, newJSONHandler(file, fileLevel, addSource))), nil
}

// NewFromConfig creates the command logger. Console output goes to stderr so
// stdout stays clean for command results; when a log directory is configured
// a JSON copy is appended to gamesort.log.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	return New(Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.LogFilePath(),
	})
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gamesort/internal/config"
	"gamesort/internal/logging"
	"gamesort/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("written to file", logging.String("code", "RJ01234567"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "gamesort.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("log file is not json: %v (%q)", err, content)
	}
	if entry["msg"] != "written to file" || entry["code"] != "RJ01234567" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithStage(services.WithItemKey(context.Background(), "dlsite/RJ01234567"), "scrape")
	component := logging.NewComponentLogger(logger, "pipeline")
	logging.WarnWithContext(logging.WithContext(ctx, component), "scrape failed", "scrape_failed",
		logging.String(logging.FieldErrorHint, "retry later"))

	out := buf.String()
	for _, fragment := range []string{
		"WARN [pipeline] dlsite/RJ01234567 (scrape) - scrape failed",
		"Event type: scrape_failed",
		"Error hint: retry later",
		"Impact: operation completed with warnings",
	} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in console output:\n%s", fragment, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "invalid", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info level filtering, got %q", buf.String())
	}
}

func TestLogFileKeepsInfoWhenConsoleIsQuiet(t *testing.T) {
	var console bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "nested", "gamesort.log")
	logger, err := logging.New(logging.Options{Level: "error", Console: &console, FilePath: logPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("cache hit", logging.Strings("tags", []string{"RPG", "ファンタジー"}))

	if console.Len() != 0 {
		t.Fatalf("console should stay quiet, got %q", console.String())
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("log file is not json: %v (%q)", err, content)
	}
	if entry["msg"] != "cache hit" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if ts, _ := entry["ts"].(string); !strings.HasSuffix(ts, "Z") || !strings.Contains(ts, ".") {
		t.Fatalf("ts = %q, want UTC with milliseconds", ts)
	}
}

type recordingHandler struct {
	attrs []slog.Attr
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(context.Context, slog.Record) error { return nil }
func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}
func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemKey(ctx, "dlsite/RJ01234567")
	ctx = services.WithStage(ctx, "translate")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logger := logging.WithContext(ctx, slog.New(&recordingHandler{}))
	handler, ok := logger.Handler().(*recordingHandler)
	if !ok {
		t.Fatalf("unexpected handler type %T", logger.Handler())
	}
	got := map[string]string{}
	for _, attr := range handler.attrs {
		got[attr.Key] = attr.Value.String()
	}
	want := map[string]string{
		logging.FieldItemKey:       "dlsite/RJ01234567",
		logging.FieldStage:         "translate",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s = %q, want %q (all: %v)", key, got[key], value, got)
		}
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should be disabled")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}

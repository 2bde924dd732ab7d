package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"gamesort/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GAMESORT_DATA_DIR", "GAMESORT_LOG_LEVEL", "GAMESORT_LOG_FORMAT",
		"GAMESORT_TRANSLATOR_API_KEY", "OPENROUTER_API_KEY", "DLSITE_COOKIES", "PROXY_URL",
		"GAMESORT_NTFY_TOPIC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "gamesort")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.CacheDB != filepath.Join(wantData, "cache.db") {
		t.Fatalf("unexpected cache db: %q", cfg.Paths.CacheDB)
	}
	if cfg.TTL() != 7*24*time.Hour {
		t.Fatalf("unexpected ttl: %v", cfg.TTL())
	}
	if cfg.Batch.Workers != 4 || cfg.Batch.ChunkSize != 10 {
		t.Fatalf("unexpected batch sizing: %+v", cfg.Batch)
	}
	if cfg.Tags.Fallback != "uncategorized" || cfg.Tags.DefaultPriority != 10 {
		t.Fatalf("unexpected tag defaults: %+v", cfg.Tags)
	}
	if cfg.Translator.APIKey != "" {
		t.Fatal("expected no translator key without env or file")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "gamesort.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Batch struct {
			Workers   int `toml:"workers"`
			ChunkSize int `toml:"chunk_size"`
		} `toml:"batch"`
		Tags struct {
			Curated map[string]int `toml:"curated"`
		} `toml:"tags"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Batch.Workers = 2
	custom.Batch.ChunkSize = 5
	custom.Tags.Curated = map[string]int{"RPG": 30, "  ": 99}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.CacheDB != filepath.Join(tempDir, "data", "cache.db") {
		t.Fatalf("cache db should follow data dir, got %q", cfg.Paths.CacheDB)
	}
	if cfg.Batch.Workers != 2 || cfg.Batch.ChunkSize != 5 {
		t.Fatalf("unexpected batch config: %+v", cfg.Batch)
	}
	if len(cfg.Tags.Curated) != 1 || cfg.Tags.Curated["RPG"] != 30 {
		t.Fatalf("unexpected curated table: %v", cfg.Tags.Curated)
	}
	if cfg.Scraper.MaxAttempts != 3 {
		t.Fatalf("expected default scraper attempts, got %d", cfg.Scraper.MaxAttempts)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("GAMESORT_DATA_DIR", dataDir)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("GAMESORT_LOG_LEVEL", "DEBUG")
	t.Setenv("DLSITE_COOKIES", "locale=ja-jp")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != dataDir {
		t.Fatalf("data dir = %q, want %q", cfg.Paths.DataDir, dataDir)
	}
	if cfg.Translator.APIKey != "or-key" {
		t.Fatalf("translator key = %q", cfg.Translator.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Scraper.Cookies != "locale=ja-jp" {
		t.Fatalf("cookies = %q", cfg.Scraper.Cookies)
	}

	t.Setenv("GAMESORT_TRANSLATOR_API_KEY", "direct-key")
	cfg, _, _, err = config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Translator.APIKey != "direct-key" {
		t.Fatalf("expected dedicated key to win, got %q", cfg.Translator.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"scraper url", "[scraper]\nbase_url = \"ftp://example.com\"\n", "scraper.base_url"},
		{"workers", "[batch]\nworkers = 64\n", "batch.workers"},
		{"retry window", "[scraper]\nretry_base_seconds = 20\nretry_max_seconds = 5\n", "retry_max_seconds"},
		{"cookies", "[scraper]\ncookies = \"broken\"\n", "scraper.cookies"},
		{"curated", "[tags.curated]\nRPG = -1\n", "tags.curated"},
		{"ntfy topic", "[notifications]\nntfy_topic = \"my-topic\"\n", "notifications.ntfy_topic"},
		{"same language", "[translator]\nenabled = true\nsource_language = \"ja\"\ntarget_language = \"日本語\"\n", "translator.source_language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "gamesort.toml")
			body := "[paths]\ndata_dir = \"" + filepath.ToSlash(t.TempDir()) + "\"\n" + tt.body
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTranslatorLanguagesNormalized(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gamesort.toml")
	body := "[paths]\ndata_dir = \"" + filepath.ToSlash(t.TempDir()) + "\"\n[translator]\nsource_language = \"jpn\"\ntarget_language = \"ko-KR\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Translator.SourceLanguage != "Japanese" || cfg.Translator.TargetLanguage != "Korean" {
		t.Fatalf("languages not normalized: %q -> %q", cfg.Translator.SourceLanguage, cfg.Translator.TargetLanguage)
	}
}

func TestSampleConfigParses(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Scraper.MaxTags != 5 || !cfg.Translator.Enabled {
		t.Fatalf("unexpected sample values: %+v %+v", cfg.Scraper, cfg.Translator)
	}
}

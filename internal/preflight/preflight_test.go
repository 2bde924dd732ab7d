package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gamesort/internal/cachestore"
	"gamesort/internal/logging"
	"gamesort/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCache_NotCreatedYet(t *testing.T) {
	result := CheckCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if !result.Passed || !strings.Contains(result.Detail, "not created yet") {
		t.Fatalf("expected pass for missing database, got %+v", result)
	}
}

func TestCheckCache_Existing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := cachestore.OpenPath(path, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	result := CheckCache(context.Background(), path)
	if !result.Passed || !strings.Contains(result.Detail, "0 records") {
		t.Fatalf("expected healthy database, got %+v", result)
	}
}

func TestCheckCache_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	if err := os.WriteFile(path, []byte("definitely not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckCache(context.Background(), path); result.Passed {
		t.Fatalf("expected failure for corrupt database, got %+v", result)
	}
}

func TestCheckScraper_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithScraperBaseURL(srv.URL+"/maniax/work/=/product_id"))
	if result := CheckScraper(context.Background(), cfg.Scraper); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckScraper_ServerErrorIsOptional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithScraperBaseURL(srv.URL))
	result := CheckScraper(context.Background(), cfg.Scraper)
	if result.Passed || !result.Optional {
		t.Fatalf("expected optional failure, got %+v", result)
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithTranslator(srv.URL, "good-key"))
	if result := CheckLLM(context.Background(), "Translator", cfg.Translator); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithTranslator(srv.URL, "bad-key"))
	if result := CheckLLM(context.Background(), "Translator", cfg.Translator); result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckTranslatorFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckTranslatorFromConfig(context.Background(), cfg); !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("disabled translator should pass, got %+v", result)
	}

	cfg.Translator.Enabled = true
	result := CheckTranslatorFromConfig(context.Background(), cfg)
	if result.Passed || !result.Optional {
		t.Fatalf("missing key should be an optional failure, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithScraperBaseURL(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	// data dir, log dir, cache, scraper, translator
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if blocking := Blocking(results); len(blocking) != 0 {
		t.Fatalf("unexpected blocking failures: %+v", blocking)
	}
}

func TestBlockingSkipsOptional(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Detail: "down", Optional: true},
		{Name: "c", Detail: "broken"},
	}
	blocking := Blocking(results)
	if len(blocking) != 1 || blocking[0].Name != "c" {
		t.Fatalf("unexpected blocking set: %+v", blocking)
	}
}

package testsupport

import (
	"path/filepath"
	"testing"

	"gamesort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The translator starts disabled and the scraper retries are shortened; use
// the options to point collaborators at test servers.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.CacheDB = filepath.Join(base, "data", "cache.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Translator.Enabled = false
	cfgVal.Translator.APIKey = ""
	cfgVal.Scraper.RetryBaseSeconds = 0
	cfgVal.Scraper.RetryMaxSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTranslator enables the translator against baseURL with the given key.
func WithTranslator(baseURL, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translator.Enabled = true
		b.cfg.Translator.BaseURL = baseURL
		b.cfg.Translator.APIKey = apiKey
		b.cfg.Translator.MaxAttempts = 1
	}
}

// WithScraperBaseURL points the DLsite scraper at a test server.
func WithScraperBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scraper.BaseURL = baseURL
	}
}

// WithWorkers overrides the batch worker count and chunk size.
func WithWorkers(workers, chunkSize int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.Workers = workers
		b.cfg.Batch.ChunkSize = chunkSize
	}
}

// WithCuratedTag adds a curated priority for tag.
func WithCuratedTag(tag string, priority int) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Tags.Curated == nil {
			b.cfg.Tags.Curated = make(map[string]int)
		}
		b.cfg.Tags.Curated[tag] = priority
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

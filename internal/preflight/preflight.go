package preflight

import (
	"context"

	"gamesort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	// Optional checks never block a batch.
	Optional bool `json:"optional,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data directory (always checked)
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	// Log directory only matters once file logging created it
	if cfg.Paths.LogDir != "" && dirExists(cfg.Paths.LogDir) {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckCache(ctx, cfg.Paths.CacheDB))
	results = append(results, CheckScraper(ctx, cfg.Scraper))
	results = append(results, CheckTranslatorFromConfig(ctx, cfg))

	return results
}

// Blocking returns the failed checks that are not optional.
func Blocking(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

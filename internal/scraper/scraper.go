// Package scraper defines the catalog metadata source used by the
// reconciliation pipeline and a retrying decorator for it.
package scraper

import (
	"context"
	"fmt"

	"gamesort/internal/services"
)

var (
	// ErrNotFound reports that the catalog has no page for the code. It is
	// cached as a negative entry and never retried.
	ErrNotFound = fmt.Errorf("scraper: %w", services.ErrNotFound)
	// ErrTransient reports a failure a later attempt may clear.
	ErrTransient = fmt.Errorf("scraper: %w", services.ErrTransient)
)

// Metadata is what a catalog page yields for one code.
type Metadata struct {
	Code         string   `json:"code"`
	Title        string   `json:"title"`
	Tags         []string `json:"tags"`
	ReleaseDate  string   `json:"release_date"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Rating       float64  `json:"rating"`
	Maker        string   `json:"maker"`
	Link         string   `json:"link"`
}

// Scraper fetches metadata for a normalized code. Errors wrap ErrNotFound or
// ErrTransient.
type Scraper interface {
	Fetch(ctx context.Context, code string) (Metadata, error)
}

// Func adapts a function to the Scraper interface.
type Func func(ctx context.Context, code string) (Metadata, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, code string) (Metadata, error) {
	return f(ctx, code)
}

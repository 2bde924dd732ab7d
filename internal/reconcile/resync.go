package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"gamesort/internal/cachestore"
	"gamesort/internal/logging"
	"gamesort/internal/tags"
)

// ResyncSummary counts what a Resync pass touched.
type ResyncSummary struct {
	Scanned  int `json:"scanned"`
	Updated  int `json:"updated"`
	Negative int `json:"negative"`
	Failed   int `json:"failed"`
}

// Resync recomputes target tags and primary tags for every cached record
// matching filter using the current dictionary. Records whose output does
// not change are left untouched, so fetched_at and freshness are preserved.
func Resync(ctx context.Context, store *cachestore.Store, resolver *tags.Resolver, filter cachestore.Filter, logger *slog.Logger) (ResyncSummary, error) {
	logger = logging.NewComponentLogger(logger, "resync")
	entries, err := store.List(ctx, filter)
	if err != nil {
		return ResyncSummary{}, fmt.Errorf("list cached records: %w", err)
	}

	var summary ResyncSummary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++
		if entry.Record.IsNegative() {
			summary.Negative++
			continue
		}
		updated, changed := resolver.Reapply(ctx, entry.Record)
		if !changed {
			continue
		}
		if err := store.Upsert(ctx, entry.Platform, entry.Identifier, updated); err != nil {
			summary.Failed++
			logging.WarnWithContext(logger, "resync write failed", "resync_write_failed",
				logging.String(logging.FieldItemKey, entry.Platform+"/"+entry.Identifier),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check cache database permissions"),
				logging.String(logging.FieldImpact, "record keeps its previous tags"),
			)
			continue
		}
		summary.Updated++
	}
	logger.Info("resync complete",
		logging.Int("scanned", summary.Scanned),
		logging.Int("updated", summary.Updated),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

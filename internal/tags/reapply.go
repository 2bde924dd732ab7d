package tags

import (
	"context"
	"slices"

	"gamesort/internal/games"
)

// Reapply recomputes TagsTarget and PrimaryTag for rec from the current
// dictionary. Tags without a mapping keep their stored translation, or the
// source text when none exists; only translated tags can become primary.
// Negative records are returned unchanged.
// The second return reports whether anything changed.
func (r *Resolver) Reapply(ctx context.Context, rec games.GameRecord) (games.GameRecord, bool) {
	if rec.IsNegative() {
		return rec, false
	}
	out := rec.Clone()
	resolved, _ := r.ResolveBatch(ctx, rec.TagsSource)
	bySource := make(map[string]Resolved, len(resolved))
	for _, res := range resolved {
		bySource[res.Source] = res
	}

	candidates := make([]Resolved, 0, len(rec.TagsSource))
	out.TagsTarget = make([]string, len(rec.TagsSource))
	for i, source := range rec.TagsSource {
		res, ok := bySource[source]
		if !ok {
			target := source
			if i < len(rec.TagsTarget) && rec.TagsTarget[i] != "" {
				target = rec.TagsTarget[i]
			}
			out.TagsTarget[i] = target
			if target == source {
				// Never translated: shown as source text, not a primary candidate.
				continue
			}
			res = Resolved{Source: source, Target: target, Priority: r.PriorityFor(source, target)}
		}
		candidates = append(candidates, res)
		out.TagsTarget[i] = res.Target
	}
	out.PrimaryTag = r.PrimaryTag(candidates)

	changed := out.PrimaryTag != rec.PrimaryTag || !slices.Equal(out.TagsTarget, rec.TagsTarget)
	return out, changed
}

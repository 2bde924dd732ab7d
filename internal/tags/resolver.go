package tags

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"gamesort/internal/config"
	"gamesort/internal/logging"
)

const (
	// DefaultPriority applies to mappings without a curated priority.
	DefaultPriority = 10
	// DefaultFallback is the primary tag for records with no usable tags.
	DefaultFallback = "uncategorized"

	errorPlaceholder = "[Error]"
)

// Mapping is one dictionary entry.
type Mapping struct {
	SourceTag string    `json:"source_tag"`
	TargetTag string    `json:"target_tag"`
	Priority  int       `json:"priority"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolved is a source tag paired with its translation and priority.
type Resolved struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Priority int    `json:"priority"`
}

// MappingStore persists the dictionary.
type MappingStore interface {
	LookupTags(ctx context.Context, sources []string) (map[string]Mapping, error)
	UpsertTag(ctx context.Context, mapping Mapping) error
}

// Options tune a Resolver. Zero values fall back to package defaults.
type Options struct {
	Curated         map[string]int
	DefaultPriority int
	Fallback        string
}

// Resolver resolves tags against the dictionary.
type Resolver struct {
	store           MappingStore
	curated         map[string]int
	defaultPriority int
	fallback        string
	logger          *slog.Logger
	now             func() time.Time
}

// NewResolver constructs a resolver over store.
func NewResolver(store MappingStore, opts Options, logger *slog.Logger) *Resolver {
	r := &Resolver{
		store:           store,
		curated:         make(map[string]int, len(opts.Curated)),
		defaultPriority: opts.DefaultPriority,
		fallback:        strings.TrimSpace(opts.Fallback),
		logger:          logging.NewComponentLogger(logger, "tags"),
		now:             time.Now,
	}
	for tag, priority := range opts.Curated {
		if key := normalizeTag(tag); key != "" {
			r.curated[key] = priority
		}
	}
	if r.defaultPriority <= 0 {
		r.defaultPriority = DefaultPriority
	}
	if r.fallback == "" {
		r.fallback = DefaultFallback
	}
	return r
}

// NewFromConfig builds a resolver using the [tags] configuration section.
func NewFromConfig(cfg *config.Config, store MappingStore, logger *slog.Logger) *Resolver {
	if cfg == nil {
		return NewResolver(store, Options{}, logger)
	}
	return NewResolver(store, Options{
		Curated:         cfg.Tags.Curated,
		DefaultPriority: cfg.Tags.DefaultPriority,
		Fallback:        cfg.Tags.Fallback,
	}, logger)
}

// Fallback returns the primary tag used when a record has no tags.
func (r *Resolver) Fallback() string {
	return r.fallback
}

// ResolveBatch splits sources into tags with a stored translation and tags
// without one. Input order is preserved within each group. A store fault
// leaves every tag unresolved.
func (r *Resolver) ResolveBatch(ctx context.Context, sources []string) ([]Resolved, []string) {
	if len(sources) == 0 {
		return nil, nil
	}
	var found map[string]Mapping
	if r.store != nil {
		var err error
		found, err = r.store.LookupTags(ctx, uniqueStrings(sources))
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "tag lookup failed; treating tags as unresolved", "tag_lookup_failed",
				logging.Int("tag_count", len(sources)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the cache database with gamesort status"),
				logging.String(logging.FieldImpact, "tags will be sent to the translator"),
			)
			found = nil
		}
	}

	var (
		resolved   []Resolved
		unresolved []string
	)
	for _, source := range sources {
		mapping, ok := found[source]
		if !ok || strings.TrimSpace(mapping.TargetTag) == "" {
			unresolved = append(unresolved, source)
			continue
		}
		resolved = append(resolved, Resolved{
			Source:   source,
			Target:   mapping.TargetTag,
			Priority: r.effectivePriority(mapping.Priority, source, mapping.TargetTag),
		})
	}
	return resolved, unresolved
}

// RecordTranslation stores a learned translation. A non-positive priority
// means the default; curated priorities are applied on top. Store faults are
// logged and the resolved value is still returned so the caller can proceed.
func (r *Resolver) RecordTranslation(ctx context.Context, source, target string, priority int) Resolved {
	res := Resolved{
		Source:   source,
		Target:   target,
		Priority: r.effectivePriority(priority, source, target),
	}
	if r.store == nil {
		return res
	}
	err := r.store.UpsertTag(ctx, Mapping{
		SourceTag: source,
		TargetTag: target,
		Priority:  res.Priority,
		UpdatedAt: r.now(),
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "tag mapping write failed", "tag_write_failed",
			logging.String("source_tag", source),
			logging.String("target_tag", target),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check disk space and database permissions"),
			logging.String(logging.FieldImpact, "tag will be translated again next time"),
		)
	}
	return res
}

// PriorityFor returns the curated priority for a tag pair, checking the target
// tag first, or the default priority.
func (r *Resolver) PriorityFor(source, target string) int {
	if p, ok := r.curated[normalizeTag(target)]; ok {
		return p
	}
	if p, ok := r.curated[normalizeTag(source)]; ok {
		return p
	}
	return r.defaultPriority
}

func (r *Resolver) effectivePriority(priority int, source, target string) int {
	if priority <= 0 {
		priority = r.defaultPriority
	}
	if curated := r.PriorityFor(source, target); curated > priority {
		priority = curated
	}
	return priority
}

// PrimaryTag elects the display tag among candidates.
func (r *Resolver) PrimaryTag(candidates []Resolved) string {
	return PrimaryTag(candidates, r.fallback)
}

// PrimaryTag returns the target of the highest-priority candidate. Ties go to
// the earliest candidate; an empty list yields fallback.
func PrimaryTag(candidates []Resolved, fallback string) string {
	best := -1
	for i, c := range candidates {
		if strings.TrimSpace(c.label()) == "" {
			continue
		}
		if best < 0 || c.Priority > candidates[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return fallback
	}
	return candidates[best].label()
}

func (c Resolved) label() string {
	if strings.TrimSpace(c.Target) != "" {
		return c.Target
	}
	return c.Source
}

// Normalize cleans scraped tags: NFKC, trimmed, placeholder and empty values
// dropped, duplicates removed, at most limit kept (limit <= 0 keeps all).
func Normalize(raw []string, limit int) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = normalizeTag(tag)
		if tag == "" || tag == errorPlaceholder {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.TrimSpace(norm.NFKC.String(tag))
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

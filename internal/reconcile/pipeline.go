package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"gamesort/internal/games"
	"gamesort/internal/keys"
	"gamesort/internal/logging"
	"gamesort/internal/scraper"
	"gamesort/internal/services"
	"gamesort/internal/tags"
	"gamesort/internal/textutil"
	"gamesort/internal/translator"
)

// Cache is the record store the pipeline reads and writes. Implementations
// absorb their own faults: Get reports a miss and Put reports false.
type Cache interface {
	Get(ctx context.Context, platform, identifier string) (games.GameRecord, bool)
	Put(ctx context.Context, platform, identifier string, rec games.GameRecord) bool
}

// Deps are the pipeline collaborators.
type Deps struct {
	Cache      Cache
	Scraper    scraper.Scraper
	Translator translator.Translator
	Tags       *tags.Resolver
	Classifier keys.Classifier
	TTL        time.Duration
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Pipeline reconciles one raw input into a GameRecord.
type Pipeline struct {
	cache      Cache
	scraper    scraper.Scraper
	translator translator.Translator
	tags       *tags.Resolver
	classifier keys.Classifier
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
	inflight   singleflight.Group
}

// New validates deps and builds a pipeline.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Cache == nil:
		return nil, errors.New("reconcile: cache is required")
	case deps.Scraper == nil:
		return nil, errors.New("reconcile: scraper is required")
	case deps.Tags == nil:
		return nil, errors.New("reconcile: tag resolver is required")
	}
	p := &Pipeline{
		cache:      deps.Cache,
		scraper:    deps.Scraper,
		translator: deps.Translator,
		tags:       deps.Tags,
		classifier: deps.Classifier,
		ttl:        deps.TTL,
		now:        deps.Clock,
		logger:     logging.NewComponentLogger(deps.Logger, "reconcile"),
	}
	if p.translator == nil {
		p.translator = translator.Passthrough{}
	}
	if p.ttl <= 0 {
		p.ttl = games.DefaultTTL
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Reconcile classifies raw and returns the cached or freshly built record.
// Any returned error is a *games.ItemError.
func (p *Pipeline) Reconcile(ctx context.Context, raw string) (games.GameRecord, error) {
	if strings.TrimSpace(raw) == "" {
		return games.GameRecord{}, &games.ItemError{Input: raw, Kind: games.KindInvalidInput, Message: "empty input"}
	}
	key := p.classifier.Classify(raw, "")
	if key.ID() == "" {
		return games.GameRecord{}, &games.ItemError{Input: raw, Kind: games.KindInvalidInput, Message: "input has no usable title"}
	}
	ctx = services.WithItemKey(ctx, key.String())

	// Concurrent requests for one key share a single scrape and write.
	v, err, _ := p.inflight.Do(key.String(), func() (any, error) {
		return p.reconcileKey(ctx, key)
	})
	if err != nil {
		return games.GameRecord{}, games.NewItemError(raw, err)
	}
	return v.(games.GameRecord).Clone(), nil
}

func (p *Pipeline) reconcileKey(ctx context.Context, key keys.ItemKey) (games.GameRecord, error) {
	logger := logging.WithContext(services.WithStage(ctx, "cache"), p.logger)
	now := p.now()

	cached, hit := p.cache.Get(ctx, key.Platform, key.ID())
	if hit && cached.Fresh(now, p.ttl) {
		logger.Debug("cache hit", logging.Bool("negative", cached.IsNegative()))
		return cached, nil
	}
	var base *games.GameRecord
	if hit && !cached.IsNegative() {
		base = &cached
	}

	if !key.IsCode() {
		return p.persist(ctx, key, p.titleRecord(key, now)), nil
	}

	meta, err := p.scraper.Fetch(services.WithStage(ctx, "scrape"), key.Code)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Info("catalog has no such code; caching negative entry", logging.String("code", key.Code))
			return p.persist(ctx, key, p.negativeRecord(key, now)), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return games.GameRecord{}, services.Wrap(services.ErrTimeout, "scrape", "fetch", key.Code, ctxErr)
		}
		logging.WarnWithContext(logger, "catalog fetch failed", "scrape_failed",
			logging.String("code", key.Code),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access, cookies, or proxy settings"),
			logging.String(logging.FieldImpact, "item reported as transient failure and not cached"),
		)
		return games.GameRecord{}, services.Wrap(services.ErrTransient, "scrape", "fetch", key.Code, err)
	}

	rec := p.enrich(ctx, key, meta, base, now)
	return p.persist(ctx, key, rec), nil
}

func (p *Pipeline) persist(ctx context.Context, key keys.ItemKey, rec games.GameRecord) games.GameRecord {
	if !p.cache.Put(ctx, key.Platform, key.ID(), rec) {
		logging.WithContext(ctx, p.logger).Debug("record returned without being cached")
	}
	return rec
}

func (p *Pipeline) titleRecord(key keys.ItemKey, now time.Time) games.GameRecord {
	return games.GameRecord{
		Platform:    key.Platform,
		TitleSource: key.Title,
		TitleTarget: games.StringPtr(key.Title),
		TagsSource:  []string{},
		TagsTarget:  []string{},
		PrimaryTag:  p.tags.Fallback(),
		FetchedAt:   now,
	}
}

func (p *Pipeline) negativeRecord(key keys.ItemKey, now time.Time) games.GameRecord {
	return games.GameRecord{
		Code:       games.StringPtr(key.Code),
		Platform:   key.Platform,
		TagsSource: []string{},
		TagsTarget: []string{},
		PrimaryTag: p.tags.Fallback(),
		FetchedAt:  now,
		ErrorKind:  games.KindNotFound,
	}
}

// enrich resolves tags, translates what the dictionary and the stale record
// cannot supply, and assembles the record.
func (p *Pipeline) enrich(ctx context.Context, key keys.ItemKey, meta scraper.Metadata, base *games.GameRecord, now time.Time) games.GameRecord {
	ctx = services.WithStage(ctx, "translate")
	logger := logging.WithContext(ctx, p.logger)

	title := textutil.SanitizeTitle(keys.StripCode(meta.Title, key.Code))
	if title == "" {
		title = strings.TrimSpace(meta.Title)
	}
	sourceTags := tags.Normalize(meta.Tags, 0)

	known := p.fromBase(base, sourceTags)
	var pending []string
	for _, tag := range sourceTags {
		if _, ok := known[tag]; !ok {
			pending = append(pending, tag)
		}
	}
	resolved, unresolved := p.tags.ResolveBatch(ctx, pending)
	for _, res := range resolved {
		known[res.Source] = res
	}

	var titleTarget *string
	switch {
	case base != nil && base.TitleTarget != nil && base.TitleSource == title:
		titleTarget = games.StringPtr(*base.TitleTarget)
	case !textutil.HasSourceScript(title):
		titleTarget = games.StringPtr(title)
	}
	needTitle := titleTarget == nil

	// Tags the translator could not supply keep their source text but never
	// compete for the primary tag.
	untranslated := make(map[string]bool)
	if len(unresolved) > 0 || needTitle {
		var titleArg *string
		if needTitle {
			titleArg = games.StringPtr(title)
		}
		res, err := p.translator.TranslateBatch(ctx, unresolved, titleArg)
		if err != nil {
			logging.WarnWithContext(logger, "translation failed; keeping source text", "translation_failed",
				logging.Int("tag_count", len(unresolved)),
				logging.Bool("title_requested", needTitle),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the translator api key and model"),
				logging.String(logging.FieldImpact, "tags keep source text; title retried next run"),
			)
			res = translator.Fallback(unresolved)
		}
		for i, source := range unresolved {
			if i < len(res.Translated) && res.Translated[i] {
				known[source] = p.tags.RecordTranslation(ctx, source, res.Tags[i], 0)
				continue
			}
			untranslated[source] = true
		}
		if needTitle && res.Title != nil {
			titleTarget = games.StringPtr(textutil.SanitizeTitle(*res.Title))
		}
	}

	candidates := make([]tags.Resolved, 0, len(sourceTags))
	targetTags := make([]string, 0, len(sourceTags))
	for _, source := range sourceTags {
		if untranslated[source] {
			targetTags = append(targetTags, source)
			continue
		}
		res := known[source]
		candidates = append(candidates, res)
		targetTags = append(targetTags, res.Target)
	}

	rec := games.GameRecord{
		Code:         games.StringPtr(key.Code),
		Platform:     key.Platform,
		TitleSource:  title,
		TitleTarget:  titleTarget,
		TagsSource:   sourceTags,
		TagsTarget:   targetTags,
		PrimaryTag:   p.tags.PrimaryTag(candidates),
		ReleaseDate:  meta.ReleaseDate,
		ThumbnailURL: meta.ThumbnailURL,
		Rating:       meta.Rating,
		Maker:        meta.Maker,
		Link:         meta.Link,
		FetchedAt:    now,
	}
	logger.Info("record reconciled",
		logging.String("primary_tag", rec.PrimaryTag),
		logging.Strings("tags", sourceTags),
		logging.Int("translated_tags", len(unresolved)),
		logging.Bool("title_translated", rec.TitleTarget != nil),
	)
	return rec
}

// fromBase reuses translations from a stale record for tags it already had.
func (p *Pipeline) fromBase(base *games.GameRecord, sourceTags []string) map[string]tags.Resolved {
	known := make(map[string]tags.Resolved, len(sourceTags))
	if base == nil {
		return known
	}
	previous := make(map[string]string, len(base.TagsSource))
	for i, source := range base.TagsSource {
		if i < len(base.TagsTarget) && base.TagsTarget[i] != "" && base.TagsTarget[i] != source {
			previous[source] = base.TagsTarget[i]
		}
	}
	for _, source := range sourceTags {
		if target, ok := previous[source]; ok {
			known[source] = tags.Resolved{Source: source, Target: target, Priority: p.tags.PriorityFor(source, target)}
		}
	}
	return known
}

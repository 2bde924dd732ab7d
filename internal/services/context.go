package services

import "context"

type scopeKey struct{}

// scope is the per-item annotation carried through a reconcile call. It is
// stored as one value so each With helper costs a single context layer.
type scope struct {
	itemKey   string
	stage     string
	requestID string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, value string, set func(*scope)) context.Context {
	if value == "" {
		return ctx
	}
	s := scopeFrom(ctx)
	set(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithItemKey annotates ctx with the platform/identifier being reconciled.
func WithItemKey(ctx context.Context, key string) context.Context {
	return withScope(ctx, key, func(s *scope) { s.itemKey = key })
}

// WithStage annotates ctx with the pipeline stage (cache, scrape, translate, tags).
func WithStage(ctx context.Context, stage string) context.Context {
	return withScope(ctx, stage, func(s *scope) { s.stage = stage })
}

// WithRequestID annotates ctx with the batch task id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, id, func(s *scope) { s.requestID = id })
}

func ItemKeyFromContext(ctx context.Context) (string, bool) {
	key := scopeFrom(ctx).itemKey
	return key, key != ""
}

func StageFromContext(ctx context.Context) (string, bool) {
	stage := scopeFrom(ctx).stage
	return stage, stage != ""
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id := scopeFrom(ctx).requestID
	return id, id != ""
}

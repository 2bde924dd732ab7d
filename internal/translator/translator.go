// Package translator turns source-language tags and titles into the target
// language. Translation is best effort: every failure degrades to the source
// text so a record can still be stored.
package translator

import (
	"context"
	"strings"
	"unicode/utf8"
)

// maxTagRunes bounds a single translated tag; longer output is treated as
// garbled and replaced by the source text.
const maxTagRunes = 64

// Result holds one translation batch. Tags is always parallel to the request;
// Translated[i] is false where Tags[i] fell back to the source. Title is nil
// when no title was requested or its translation failed.
type Result struct {
	Tags       []string
	Translated []bool
	Title      *string
}

// Translator translates a batch of tags and an optional title in one call.
// On error the Result still carries the source fallbacks.
type Translator interface {
	TranslateBatch(ctx context.Context, tags []string, title *string) (Result, error)
}

// Fallback returns the all-source result for a request.
func Fallback(tags []string) Result {
	return Result{
		Tags:       append([]string(nil), tags...),
		Translated: make([]bool, len(tags)),
	}
}

// Align fits translated onto source: missing, blank, or oversized entries fall
// back to the source tag and extra entries are dropped.
func Align(source, translated []string) Result {
	res := Fallback(source)
	for i := range source {
		if i >= len(translated) {
			break
		}
		candidate := strings.TrimSpace(translated[i])
		if candidate == "" || utf8.RuneCountInString(candidate) > maxTagRunes || !utf8.ValidString(candidate) {
			continue
		}
		res.Tags[i] = candidate
		res.Translated[i] = true
	}
	return res
}

// Passthrough keeps every value as-is. Titles are accepted unchanged so
// records become fresh; tags are reported untranslated so the dictionary is
// not filled with identity mappings.
type Passthrough struct{}

// TranslateBatch implements Translator.
func (Passthrough) TranslateBatch(_ context.Context, tags []string, title *string) (Result, error) {
	res := Fallback(tags)
	if title != nil {
		t := *title
		res.Title = &t
	}
	return res, nil
}

package games

import (
	"strings"
	"time"
)

// DefaultTTL is how long a record stays fresh after it was fetched.
const DefaultTTL = 7 * 24 * time.Hour

// GameRecord is the cached, enriched document for one catalog item.
type GameRecord struct {
	Code         *string   `json:"code,omitempty"`
	Platform     string    `json:"platform"`
	TitleSource  string    `json:"title_source"`
	TitleTarget  *string   `json:"title_target"`
	TagsSource   []string  `json:"tags_source"`
	TagsTarget   []string  `json:"tags_target"`
	PrimaryTag   string    `json:"primary_tag"`
	ReleaseDate  string    `json:"release_date"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Rating       float64   `json:"rating"`
	Maker        string    `json:"maker"`
	Link         string    `json:"link"`
	FetchedAt    time.Time `json:"fetched_at"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
}

// Identifier returns the code for code-keyed records and the source title otherwise.
func (r GameRecord) Identifier() string {
	if r.Code != nil && strings.TrimSpace(*r.Code) != "" {
		return *r.Code
	}
	return r.TitleSource
}

// IsNegative reports whether the record only remembers a failed lookup.
func (r GameRecord) IsNegative() bool {
	return r.ErrorKind != ""
}

// NeedsTranslation reports whether the title still lacks a target-language value.
func (r GameRecord) NeedsTranslation() bool {
	return !r.IsNegative() && r.TitleTarget == nil
}

// Fresh reports whether the record can be served without re-fetching.
// Negative entries are fresh for the whole TTL; positive entries additionally
// need a translated title.
func (r GameRecord) Fresh(now time.Time, ttl time.Duration) bool {
	if r.FetchedAt.IsZero() {
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now.Sub(r.FetchedAt) >= ttl {
		return false
	}
	return r.IsNegative() || !r.NeedsTranslation()
}

// DisplayTitle prefers the translated title.
func (r GameRecord) DisplayTitle() string {
	if r.TitleTarget != nil && strings.TrimSpace(*r.TitleTarget) != "" {
		return *r.TitleTarget
	}
	return r.TitleSource
}

// Clone returns a deep copy so callers can mutate slices and pointers safely.
func (r GameRecord) Clone() GameRecord {
	out := r
	if r.Code != nil {
		code := *r.Code
		out.Code = &code
	}
	if r.TitleTarget != nil {
		title := *r.TitleTarget
		out.TitleTarget = &title
	}
	out.TagsSource = append([]string(nil), r.TagsSource...)
	out.TagsTarget = append([]string(nil), r.TagsTarget...)
	return out
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

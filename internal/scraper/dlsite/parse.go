package dlsite

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"gamesort/internal/scraper"
	"gamesort/internal/tags"
)

const (
	releaseDateLabel = "販売日"
	ageGateMarker    = "adult_check"
)

// parseProduct extracts metadata from a parsed product page. The bool is false
// when the page has no product title.
func parseProduct(doc *html.Node, pageURL *url.URL, maxTags int) (scraper.Metadata, bool) {
	title := text(findFirst(doc, byID("work_name")))
	if title == "" {
		return scraper.Metadata{}, false
	}
	meta := scraper.Metadata{
		Title:        title,
		Tags:         genreTags(doc, maxTags),
		ReleaseDate:  releaseDate(doc),
		ThumbnailURL: thumbnail(doc, pageURL),
		Rating:       rating(doc),
		Maker:        text(findFirst(findFirst(doc, byTagClass("span", "maker_name")), byTag("a"))),
	}
	return meta, true
}

func genreTags(doc *html.Node, maxTags int) []string {
	var raw []string
	for _, genre := range findAll(doc, byTagClass("div", "main_genre")) {
		for _, a := range findAll(genre, byTag("a")) {
			raw = append(raw, text(a))
		}
	}
	return tags.Normalize(raw, maxTags)
}

// releaseDate reads the cell next to the 販売日 header, preferring its link text.
func releaseDate(doc *html.Node) string {
	for _, th := range findAll(doc, byTag("th")) {
		if !strings.Contains(text(th), releaseDateLabel) {
			continue
		}
		td := nextElementSibling(th)
		if td == nil || !isElement(td, "td") {
			continue
		}
		if a := findFirst(td, byTag("a")); a != nil {
			return text(a)
		}
		return text(td)
	}
	return ""
}

func thumbnail(doc *html.Node, pageURL *url.URL) string {
	raw := ""
	if meta := findFirst(doc, byTagAttr("meta", "property", "og:image")); meta != nil {
		raw = strings.TrimSpace(attr(meta, "content"))
	}
	if raw == "" {
		if img := findFirst(doc, byTagClass("img", "work_thumb")); img != nil {
			raw = strings.TrimSpace(attr(img, "src"))
		}
	}
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil || pageURL == nil {
		return raw
	}
	return pageURL.ResolveReference(ref).String()
}

func rating(doc *html.Node) float64 {
	node := findFirst(doc, byTagAttr("span", "itemprop", "ratingValue"))
	if node == nil {
		return 0
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(text(node)), 64)
	if err != nil {
		return 0
	}
	return value
}

func isAgeGate(finalURL *url.URL, body []byte) bool {
	if finalURL != nil && strings.Contains(finalURL.Path, "age-verification") {
		return true
	}
	return strings.Contains(strings.ToLower(string(body)), ageGateMarker)
}

// missingProductMarkers appear on the 200 "work not found" page DLsite serves
// for retired or unknown product ids.
var missingProductMarkers = []string{"お探しの作品は見つかりませんでした", "作品が見つかりません", "work could not be found"}

// isMissingProduct reports whether a title-less page positively says the
// product does not exist. Anything else (a redesign, an interstitial) is not
// proof of absence.
func isMissingProduct(doc *html.Node) bool {
	if findFirst(doc, byTagClass("div", "error_box")) != nil {
		return true
	}
	body := text(doc)
	for _, marker := range missingProductMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

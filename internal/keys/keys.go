package keys

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Kind distinguishes code keys from title keys.
type Kind string

const (
	KindCode  Kind = "code"
	KindTitle Kind = "title"
)

const (
	// PlatformDLsite namespaces records keyed by DLsite product codes.
	PlatformDLsite = "dlsite"
	// DefaultTitlePlatform namespaces free-text title records.
	DefaultTitlePlatform = "steam"
)

var (
	codePattern     = regexp.MustCompile(`(?i)(RJ|RE|VJ|BJ)[_\-\s]?(\d{6,8})(?:\D|$)`)
	normalizedCode  = regexp.MustCompile(`^[A-Z]{2}\d{6,8}$`)
	codePlatformMap = map[string]string{
		"RJ": PlatformDLsite,
		"RE": PlatformDLsite,
		"VJ": PlatformDLsite,
		"BJ": PlatformDLsite,
	}
)

// ItemKey is the typed form of one requested item.
type ItemKey struct {
	Kind     Kind
	Platform string
	Code     string
	Title    string
	Raw      string
}

// IsCode reports whether the key carries a catalog code.
func (k ItemKey) IsCode() bool { return k.Kind == KindCode }

// ID returns the normalized cache identifier for the key.
func (k ItemKey) ID() string {
	if k.IsCode() {
		return k.Code
	}
	return NormalizeTitle(k.Title)
}

// String renders platform/id for logs.
func (k ItemKey) String() string {
	return k.Platform + "/" + k.ID()
}

// Classifier turns raw strings into ItemKeys.
type Classifier struct {
	// TitlePlatform is used for title keys when the caller gives no hint.
	TitlePlatform string
}

// Classify applies the default classifier.
func Classify(raw string) ItemKey {
	return Classifier{}.Classify(raw, "")
}

// Classify parses raw into a code key when a code pattern matches, otherwise a title key.
// A non-empty platformHint overrides the inferred platform.
func (c Classifier) Classify(raw, platformHint string) ItemKey {
	trimmed := strings.TrimSpace(raw)
	hint := strings.ToLower(strings.TrimSpace(platformHint))

	if code, prefix, ok := matchCode(trimmed); ok {
		platform := codePlatformMap[prefix]
		if hint != "" {
			platform = hint
		}
		return ItemKey{Kind: KindCode, Platform: platform, Code: code, Raw: raw}
	}

	platform := hint
	if platform == "" {
		platform = strings.ToLower(strings.TrimSpace(c.TitlePlatform))
	}
	if platform == "" {
		platform = DefaultTitlePlatform
	}
	return ItemKey{Kind: KindTitle, Platform: platform, Title: trimmed, Raw: raw}
}

// ExtractCode returns the normalized code found anywhere in s.
func ExtractCode(s string) (string, bool) {
	code, _, ok := matchCode(s)
	return code, ok
}

// IsCode reports whether s is already a normalized code.
func IsCode(s string) bool {
	return normalizedCode.MatchString(s)
}

// NormalizeIdentifier maps any identifier onto the form used as a cache key.
// Codes are upper-cased with separators removed; titles are case-folded.
func NormalizeIdentifier(s string) string {
	if code, ok := ExtractCode(s); ok {
		return code
	}
	return NormalizeTitle(s)
}

// NormalizeTitle NFKC-normalizes, case-folds, and collapses whitespace.
func NormalizeTitle(title string) string {
	// Casers carry state, so each call gets its own.
	folded := cases.Fold().String(norm.NFKC.String(title))
	return strings.Join(strings.FieldsFunc(folded, unicode.IsSpace), " ")
}

func matchCode(s string) (code, prefix string, ok bool) {
	folded := width.Fold.String(s)
	match := codePattern.FindStringSubmatch(folded)
	if match == nil {
		return "", "", false
	}
	prefix = strings.ToUpper(match[1])
	return prefix + match[2], prefix, true
}

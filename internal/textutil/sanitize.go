package textutil

import (
	"strings"
	"unicode"
)

// titleReplacer drops characters that cannot appear in folder names and turns
// path separators into dashes so a title can be used as a sort folder.
var titleReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	"?", "",
	"*", "",
	":", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeTitle removes filesystem-unsafe characters and collapses whitespace.
func SanitizeTitle(title string) string {
	title = titleReplacer.Replace(title)
	return strings.Join(strings.FieldsFunc(title, unicode.IsSpace), " ")
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters and digits of any script are kept, hyphens and underscores survive,
// everything else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

package keys

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

const (
	openBrackets  = `\[\(【（「『〔`
	closeBrackets = `\]\)】）」』〕`
)

// StripCode removes every occurrence of code from title together with a
// bracket pair wrapped around it and separators left dangling at the ends.
// Full-width spellings of the code are matched too.
func StripCode(title, code string) string {
	if !IsCode(code) {
		return strings.TrimSpace(title)
	}
	pattern := regexp.MustCompile(`(?i)[` + openBrackets + `]?\s*` +
		regexp.QuoteMeta(code[:2]) + `[_\-\s]?` + regexp.QuoteMeta(code[2:]) +
		`\s*[` + closeBrackets + `]?`)

	out := pattern.ReplaceAllString(title, " ")
	if out == title {
		if folded := width.Fold.String(title); folded != title && pattern.MatchString(folded) {
			out = pattern.ReplaceAllString(folded, " ")
		}
	}
	out = strings.Join(strings.Fields(out), " ")
	return strings.Trim(out, " -_|/:")
}

package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a resolved language setting.
type Language struct {
	Code string // ISO 639-1
	Name string // English display name
}

type entry struct {
	code2   string
	code3   string
	alt3    string
	display string
	words   []string // lower-cased English and native names
}

// Languages that show up as DLsite catalog or translation targets get
// explicit native-name aliases; anything else goes through BCP 47 parsing.
var languages = []entry{
	{"ja", "jpn", "", "Japanese", []string{"japanese", "日本語"}},
	{"ko", "kor", "", "Korean", []string{"korean", "한국어", "조선어"}},
	{"en", "eng", "", "English", []string{"english"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "中文", "简体中文", "繁體中文"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "español"}},
	{"fr", "fra", "fre", "French", []string{"french", "français"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese", "português"}},
	{"ru", "rus", "", "Russian", []string{"russian", "русский"}},
	{"vi", "vie", "", "Vietnamese", []string{"vietnamese", "tiếng việt"}},
	{"th", "tha", "", "Thai", []string{"thai", "ไทย"}},
	{"id", "ind", "", "Indonesian", []string{"indonesian", "bahasa indonesia"}},
}

var (
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord  = make(map[string]*entry, len(languages)*2)
)

func init() {
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

// Lookup resolves a code, tag, or name. ok is false when the input is
// empty or names no language.
func Lookup(value string) (Language, bool) {
	key := strings.ToLower(strings.TrimSpace(value))
	if key == "" {
		return Language{}, false
	}
	if e := known(key); e != nil {
		return Language{Code: e.code2, Name: e.display}, true
	}

	tag, err := xlanguage.Parse(strings.ReplaceAll(key, "_", "-"))
	if err != nil {
		return Language{}, false
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return Language{}, false
	}
	if e := known(base.String()); e != nil {
		return Language{Code: e.code2, Name: e.display}, true
	}
	name := display.English.Languages().Name(xlanguage.Make(base.String()))
	if name == "" {
		return Language{}, false
	}
	return Language{Code: base.String(), Name: name}, true
}

func known(key string) *entry {
	if e, ok := byCode2[key]; ok {
		return e
	}
	if e, ok := byCode3[key]; ok {
		return e
	}
	if e, ok := byWord[key]; ok {
		return e
	}
	return nil
}

// DisplayName returns the English name for value, or value trimmed when it
// names no known language so descriptive settings like "Korean (casual)"
// still reach the prompt.
func DisplayName(value string) string {
	if lang, ok := Lookup(value); ok {
		return lang.Name
	}
	return strings.TrimSpace(value)
}

// Same reports whether a and b resolve to the same language.
func Same(a, b string) bool {
	la, okA := Lookup(a)
	lb, okB := Lookup(b)
	if okA && okB {
		return la.Code == lb.Code
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

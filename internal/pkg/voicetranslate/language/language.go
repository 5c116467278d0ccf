// Package language holds the registry of languages supported by both the
// translation model and the synthesis backends. Codes are ISO 639-1 and are
// canonicalized through golang.org/x/text before lookup.
package language

import (
	"sort"
	"unicode"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language describes one supported language.
type Language struct {
	// Code is the ISO 639-1 code, e.g. "en".
	Code string
	// Name is the English display name shown in the UI.
	Name string
	// NativeName is the self-referential display name, e.g. "español".
	NativeName string
	// Goruut is the language identifier the phonemizer expects.
	Goruut string
}

// Token returns the translation model's language token, e.g. "__en__".
func (l Language) Token() string {
	return "__" + l.Code + "__"
}

var registry = buildRegistry()

type entry struct {
	code, name string
	goruut     string // empty means same as name
}

// The set matches the translation model's supported pairs.
var entries = []entry{
	{"en", "English", ""},
	{"es", "Spanish", ""},
	{"fr", "French", ""},
	{"de", "German", ""},
	{"it", "Italian", ""},
	{"pt", "Portuguese", ""},
	{"nl", "Dutch", ""},
	{"ru", "Russian", ""},
	{"zh", "Chinese", "ChineseMandarin"},
	{"ja", "Japanese", ""},
	{"ko", "Korean", ""},
	{"ar", "Arabic", ""},
	{"hi", "Hindi", ""},
	{"bn", "Bengali", ""},
	{"ta", "Tamil", ""},
	{"te", "Telugu", ""},
	{"mr", "Marathi", ""},
	{"gu", "Gujarati", ""},
	{"ur", "Urdu", ""},
	{"tr", "Turkish", ""},
	{"pl", "Polish", ""},
	{"cs", "Czech", ""},
	{"hu", "Hungarian", ""},
	{"ro", "Romanian", ""},
	{"bg", "Bulgarian", ""},
	{"hr", "Croatian", ""},
	{"sr", "Serbian", ""},
	{"sk", "Slovak", ""},
	{"sl", "Slovenian", ""},
	{"et", "Estonian", ""},
	{"lv", "Latvian", ""},
	{"lt", "Lithuanian", ""},
	{"fi", "Finnish", ""},
	{"sv", "Swedish", ""},
	{"no", "Norwegian", ""},
	{"da", "Danish", ""},
	{"is", "Icelandic", ""},
}

func buildRegistry() map[string]Language {
	m := make(map[string]Language, len(entries))
	for _, e := range entries {
		l := Language{Code: e.code, Name: e.name, Goruut: e.goruut}
		if l.Goruut == "" {
			l.Goruut = e.name
		}
		if tag, err := xlang.Parse(e.code); err == nil {
			l.NativeName = display.Self.Name(tag)
		}
		if l.NativeName == "" {
			l.NativeName = e.name
		}
		m[e.code] = l
	}
	return m
}

// Lookup resolves a language by code. Regional subtags are accepted and
// reduced to their base, so "en-US" resolves to English.
func Lookup(code string) (Language, bool) {
	if l, ok := registry[code]; ok {
		return l, true
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return Language{}, false
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return Language{}, false
	}
	l, ok := registry[base.String()]
	return l, ok
}

// ByName resolves a language by its English display name.
func ByName(name string) (Language, bool) {
	for _, l := range registry {
		if l.Name == name {
			return l, true
		}
	}
	return Language{}, false
}

// All returns every supported language sorted by display name.
func All() []Language {
	out := make([]Language, 0, len(registry))
	for _, l := range registry {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Detect guesses the language of text from its dominant script. It covers
// only scripts that identify a single registry language unambiguously and
// falls back to English, mirroring the form UI's "detect" convenience.
func Detect(text string) Language {
	counts := map[string]int{}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			counts["zh"]++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			counts["ja"]++
		case unicode.Is(unicode.Hangul, r):
			counts["ko"]++
		case unicode.Is(unicode.Devanagari, r):
			counts["hi"]++
		case unicode.Is(unicode.Arabic, r):
			counts["ar"]++
		case unicode.Is(unicode.Cyrillic, r):
			counts["ru"]++
		case unicode.Is(unicode.Bengali, r):
			counts["bn"]++
		case unicode.Is(unicode.Tamil, r):
			counts["ta"]++
		case unicode.Is(unicode.Telugu, r):
			counts["te"]++
		case unicode.Is(unicode.Gujarati, r):
			counts["gu"]++
		case unicode.Is(unicode.Greek, r):
			// Not in the registry; ignore.
		}
	}
	best, bestN := "en", 0
	for code, n := range counts {
		if n > bestN {
			best, bestN = code, n
		}
	}
	// Kana outweighs Han for mixed Japanese text.
	if counts["ja"] > 0 && best == "zh" {
		best = "ja"
	}
	l, _ := Lookup(best)
	return l
}

// Package i18n holds the localized strings and option lists for the three
// study languages. Every key must be present in every language; Load refuses
// an incomplete table.
package i18n

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Lang string

const (
	English Lang = "en"
	German  Lang = "de"
	French  Lang = "fr"
)

// Supported lists the study languages; English is the fallback.
var Supported = []Lang{English, German, French}

// ParseLang accepts a language code case-insensitively.
func ParseLang(s string) (Lang, bool) {
	l := Lang(strings.ToLower(strings.TrimSpace(s)))
	for _, sup := range Supported {
		if l == sup {
			return l, true
		}
	}
	return "", false
}

//go:embed strings.yaml
var embedded []byte

// Table is an immutable, completeness-checked set of strings and lists.
type Table struct {
	text  map[Lang]map[Key]string
	lists map[Lang]map[ListKey][]string
}

type rawLocale struct {
	Text  map[string]string   `yaml:"text"`
	Lists map[string][]string `yaml:"lists"`
}

// Load parses a YAML table and checks that each supported language defines
// every Key and ListKey, and that list lengths agree across languages.
func Load(data []byte) (*Table, error) {
	var raw map[string]rawLocale
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse i18n table: %w", err)
	}

	t := &Table{
		text:  make(map[Lang]map[Key]string, len(Supported)),
		lists: make(map[Lang]map[ListKey][]string, len(Supported)),
	}
	var missing []string
	for _, lang := range Supported {
		loc, ok := raw[string(lang)]
		if !ok {
			missing = append(missing, string(lang)+":*")
			continue
		}
		t.text[lang] = make(map[Key]string, len(AllKeys))
		for _, k := range AllKeys {
			v, ok := loc.Text[string(k)]
			if !ok || strings.TrimSpace(v) == "" {
				missing = append(missing, string(lang)+":"+string(k))
				continue
			}
			t.text[lang][k] = v
		}
		t.lists[lang] = make(map[ListKey][]string, len(AllListKeys))
		for _, k := range AllListKeys {
			v, ok := loc.Lists[string(k)]
			if !ok || len(v) == 0 {
				missing = append(missing, string(lang)+":"+string(k))
				continue
			}
			t.lists[lang][k] = v
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("i18n table incomplete: %s", strings.Join(missing, ", "))
	}

	for _, k := range AllListKeys {
		want := len(t.lists[English][k])
		if n, ok := fixedListLen[k]; ok && want != n {
			return nil, fmt.Errorf("i18n list %s: en has %d entries, want %d", k, want, n)
		}
		for _, lang := range Supported[1:] {
			if got := len(t.lists[lang][k]); got != want {
				return nil, fmt.Errorf("i18n list %s: %s has %d entries, en has %d", k, lang, got, want)
			}
		}
	}
	return t, nil
}

var defaultTable = mustLoad(embedded)

func mustLoad(data []byte) *Table {
	t, err := Load(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the embedded table.
func Default() *Table {
	return defaultTable
}

func (t *Table) locale(lang Lang) Lang {
	if _, ok := t.text[lang]; ok {
		return lang
	}
	return English
}

// T returns the string for key in lang, falling back to English and then to
// the key itself.
func (t *Table) T(lang Lang, key Key) string {
	if v, ok := t.text[t.locale(lang)][key]; ok {
		return v
	}
	if v, ok := t.text[English][key]; ok {
		return v
	}
	return string(key)
}

// List returns a copy of the option list for key in lang.
func (t *Table) List(lang Lang, key ListKey) []string {
	src := t.lists[t.locale(lang)][key]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Is reports whether answer equals one of the entries of list key in lang,
// ignoring case and surrounding space.
func (t *Table) Is(lang Lang, key ListKey, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	for _, v := range t.lists[t.locale(lang)][key] {
		if strings.EqualFold(v, answer) {
			return true
		}
	}
	return false
}

// Yes reports whether answer is the affirmative option of lang.
func (t *Table) Yes(lang Lang, answer string) bool {
	yn := t.lists[t.locale(lang)][ListYesNo]
	return strings.EqualFold(strings.TrimSpace(answer), yn[0])
}

// IsAny is Is across every supported language. Answers kept in a draft
// survive a language switch this way.
func (t *Table) IsAny(key ListKey, answer string) bool {
	for _, l := range Supported {
		if t.Is(l, key, answer) {
			return true
		}
	}
	return false
}

// YesAny reports whether answer is the affirmative option of any language.
func (t *Table) YesAny(answer string) bool {
	for _, l := range Supported {
		if t.Yes(l, answer) {
			return true
		}
	}
	return false
}

// Bundle is the client-facing dump of one language.
type Bundle struct {
	Lang  Lang                `json:"lang"`
	Text  map[string]string   `json:"text"`
	Lists map[string][]string `json:"lists"`
}

// Bundle exports every string and list of lang.
func (t *Table) Bundle(lang Lang) Bundle {
	lang = t.locale(lang)
	b := Bundle{
		Lang:  lang,
		Text:  make(map[string]string, len(AllKeys)),
		Lists: make(map[string][]string, len(AllListKeys)),
	}
	for k, v := range t.text[lang] {
		b.Text[string(k)] = v
	}
	for k := range t.lists[lang] {
		b.Lists[string(k)] = t.List(lang, k)
	}
	return b
}

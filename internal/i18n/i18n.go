package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is the site's primary language.
const DefaultLocale = "cs"

var (
	ErrEmptyLocale          = errors.New("i18n: empty locale")
	ErrUnknownDefaultLocale = errors.New("i18n: default locale has no translation table")
)

//go:embed locales/*.yaml
var embedded embed.FS

// Table is one locale's translations: string keys mapping to a string leaf
// or a nested Table-shaped map.
type Table map[string]any

// Translator resolves dotted key paths against per-locale tables. It is
// immutable after construction and safe for concurrent use.
type Translator struct {
	tables        map[string]Table
	defaultLocale string
	// locales lists the default first, the rest sorted.
	locales []string
	matcher language.Matcher
}

// New builds a Translator from in-memory tables.
func New(defaultLocale string, tables map[string]Table) (*Translator, error) {
	if defaultLocale == "" {
		return nil, ErrEmptyLocale
	}
	if _, ok := tables[defaultLocale]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefaultLocale, defaultLocale)
	}

	t := &Translator{
		tables:        make(map[string]Table, len(tables)),
		defaultLocale: defaultLocale,
	}
	others := make([]string, 0, len(tables))
	for locale, table := range tables {
		if locale == "" {
			return nil, ErrEmptyLocale
		}
		t.tables[locale] = table
		if locale != defaultLocale {
			others = append(others, locale)
		}
	}
	slices.Sort(others)
	t.locales = append([]string{defaultLocale}, others...)

	tags := make([]language.Tag, 0, len(t.locales))
	for _, locale := range t.locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("i18n: locale %q: %w", locale, err)
		}
		tags = append(tags, tag)
	}
	t.matcher = language.NewMatcher(tags)

	return t, nil
}

// LoadEmbedded loads the tables compiled into the binary.
func LoadEmbedded(defaultLocale string) (*Translator, error) {
	return Load(embedded, "locales", defaultLocale)
}

// Load reads every <locale>.yaml file in dir of fsys.
func Load(fsys fs.FS, dir, defaultLocale string) (*Translator, error) {
	matches, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("i18n: list tables: %w", err)
	}

	tables := make(map[string]Table, len(matches))
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		var table Table
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("i18n: decode %s: %w", name, err)
		}
		locale := strings.TrimSuffix(path.Base(name), ".yaml")
		tables[locale] = table
	}

	return New(defaultLocale, tables)
}

// DefaultLocale returns the fallback locale.
func (t *Translator) DefaultLocale() string {
	return t.defaultLocale
}

// Locales returns the registered locales, default first.
func (t *Translator) Locales() []string {
	return slices.Clone(t.locales)
}

// Has reports whether locale has a table.
func (t *Translator) Has(locale string) bool {
	_, ok := t.tables[locale]
	return ok
}

// Translate resolves key ("nav.home") in locale's table. An unknown locale
// uses the default table. Any miss returns key unchanged so untranslated
// strings stay visible on the page.
func (t *Translator) Translate(locale, key string) string {
	table, ok := t.tables[locale]
	if !ok {
		table = t.tables[t.defaultLocale]
	}

	var node any = map[string]any(table)
	for _, segment := range strings.Split(key, ".") {
		m, ok := asMap(node)
		if !ok {
			return key
		}
		v, ok := m[segment]
		if !ok || isEmpty(v) {
			return key
		}
		node = v
	}

	s, ok := node.(string)
	if !ok {
		return key
	}
	return s
}

// For binds Translate to one locale, for use as a template function.
func (t *Translator) For(locale string) func(key string) string {
	return func(key string) string {
		return t.Translate(locale, key)
	}
}

// ResolveLocaleFromPath returns the locale named by the first segment of a
// URL path ("/en/about" -> "en"), or the default when it is not registered.
func (t *Translator) ResolveLocaleFromPath(urlPath string) string {
	segments := strings.Split(urlPath, "/")
	if len(segments) > 1 && t.Has(segments[1]) {
		return segments[1]
	}
	return t.defaultLocale
}

// MatchAcceptLanguage picks the best registered locale for an
// Accept-Language header, or the default when nothing matches.
func (t *Translator) MatchAcceptLanguage(header string) string {
	if header == "" {
		return t.defaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return t.defaultLocale
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(t.locales) {
		return t.defaultLocale
	}
	return t.locales[idx]
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Table:
		return m, true
	default:
		return nil, false
	}
}

// isEmpty treats empty strings, zero numbers, false and nil as missing.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case uint64:
		return x == 0
	case float64:
		return x == 0
	default:
		return false
	}
}

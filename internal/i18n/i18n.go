// Package i18n localizes the user-visible strings of the autocomplete widget.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const createKey = "Create \"%s\""

var supported = []language.Tag{
	language.English, // first entry is the fallback
	language.German,
	language.Japanese,
	language.French,
}

// Localizer resolves Accept-Language headers and formats messages.
type Localizer struct {
	matcher language.Matcher
	cat     *catalog.Builder
}

// New builds a Localizer with the bundled translations.
func New() *Localizer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	_ = b.SetString(language.English, createKey, "Create \"%s\"")
	_ = b.SetString(language.German, createKey, "„%s“ erstellen")
	_ = b.SetString(language.Japanese, createKey, "「%s」を作成")
	_ = b.SetString(language.French, createKey, "Créer « %s »")
	return &Localizer{matcher: language.NewMatcher(supported), cat: b}
}

// Match picks the best supported language for an Accept-Language header.
// Malformed or empty headers yield English.
func (l *Localizer) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, idx, conf := l.matcher.Match(tags...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// CreateLabel formats the text of the "create new value" option.
func (l *Localizer) CreateLabel(tag language.Tag, term string) string {
	return message.NewPrinter(tag, message.Catalog(l.cat)).Sprintf(createKey, term)
}

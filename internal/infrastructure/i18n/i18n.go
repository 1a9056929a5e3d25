// Package i18n localises user-facing API messages. English and Simplified
// Chinese are supported; everything else falls back to English.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported locales, English first so it wins ties
var Supported = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

// Translator resolves Accept-Language headers and error codes to messages
type Translator struct {
	matcher language.Matcher
	catalog *catalog.Builder
	known   map[string]bool
}

// New builds a translator over the built-in message tables
func New() *Translator {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	known := make(map[string]bool, len(english))
	for key, msg := range english {
		_ = b.SetString(language.English, key, msg)
		known[key] = true
	}
	for key, msg := range simplifiedChinese {
		_ = b.SetString(language.SimplifiedChinese, key, msg)
	}
	return &Translator{
		matcher: language.NewMatcher(Supported),
		catalog: b,
		known:   known,
	}
}

// Match picks the best supported locale for an Accept-Language header
func (t *Translator) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return Supported[idx]
}

// Message returns the localised text for key, or fallback when key has no
// translation
func (t *Translator) Message(tag language.Tag, key, fallback string) string {
	if !t.known[key] {
		return fallback
	}
	return message.NewPrinter(tag, message.Catalog(t.catalog)).Sprintf(key)
}

// Name returns the BCP 47 name used in responses ("en", "zh-Hans")
func Name(tag language.Tag) string {
	if tag == language.SimplifiedChinese {
		return "zh-Hans"
	}
	return "en"
}

package i18n

import (
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"golang.org/x/text/language"
)

// Lang is one of the two newsletter languages
type Lang string

const (
	English Lang = "en"
	Spanish Lang = "es"
)

// Supported lists the languages in negotiation preference order
var Supported = []Lang{Spanish, English}

var (
	translators = map[Lang]locales.Translator{
		English: en.New(),
		Spanish: es.New(),
	}

	matcher = language.NewMatcher([]language.Tag{language.Spanish, language.English})
)

// Parse accepts "en" or "es" in any case
func Parse(s string) (Lang, bool) {
	switch Lang(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, true
	case Spanish:
		return Spanish, true
	}
	return "", false
}

// Pick returns the string for l, falling back to English
func (l Lang) Pick(enText, esText string) string {
	if l == Spanish {
		return esText
	}
	return enText
}

// Other returns the opposite language
func (l Lang) Other() Lang {
	if l == Spanish {
		return English
	}
	return Spanish
}

// Negotiate picks a language from an Accept-Language header
func Negotiate(acceptLanguage string, fallback Lang) Lang {
	if strings.TrimSpace(acceptLanguage) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return Supported[idx]
}

// FormatLong renders a date as "September 8, 2025" or "8 de septiembre de 2025"
func FormatLong(t time.Time, l Lang) string {
	tr, ok := translators[l]
	if !ok {
		tr = translators[English]
	}
	return tr.FmtDateLong(t)
}

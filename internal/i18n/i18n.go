// Package i18n provides locale catalogs and message formatting.
package i18n

import "fmt"

// DefaultLocale is the fallback for users without a locale preference and
// for keys missing from a catalog.
const DefaultLocale = "ru"

// Translator resolves message keys for a single locale.
type Translator struct {
	locale string
}

// For returns a translator for the given locale, falling back to the
// default when the locale is empty or unknown.
func For(locale string) Translator {
	if _, ok := catalogs[locale]; !ok {
		locale = DefaultLocale
	}
	return Translator{locale: locale}
}

// Locale returns the translator's resolved locale.
func (t Translator) Locale() string {
	return t.locale
}

// Get resolves a message key and formats it with the given arguments.
// Unknown keys resolve to the key itself so a missing translation is
// visible rather than silent.
func (t Translator) Get(key string, args ...interface{}) string {
	format, ok := catalogs[t.locale][key]
	if !ok {
		format, ok = catalogs[DefaultLocale][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

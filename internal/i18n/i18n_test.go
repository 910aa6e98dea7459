package i18n

import (
	"strings"
	"testing"
)

func TestForFallsBackToDefaultLocale(t *testing.T) {
	for _, locale := range []string{"", "de", "xx"} {
		if got := For(locale).Locale(); got != DefaultLocale {
			t.Errorf("For(%q).Locale() = %q, want %q", locale, got, DefaultLocale)
		}
	}
	if got := For("en").Locale(); got != "en" {
		t.Errorf("For(en).Locale() = %q, want en", got)
	}
}

func TestGetResolvesAndFormats(t *testing.T) {
	tr := For("en")

	msg := tr.Get("event_cancelled_notification", "Standup", "01.01.2025 10:00")
	if !strings.Contains(msg, "Standup") || !strings.Contains(msg, "01.01.2025 10:00") {
		t.Errorf("formatted message missing arguments: %q", msg)
	}

	if got := tr.Get("no_such_key"); got != "no_such_key" {
		t.Errorf("unknown key = %q, want the key itself", got)
	}
}

func TestCatalogsCoverTheSameKeys(t *testing.T) {
	for key := range catalogs["en"] {
		if _, ok := catalogs[DefaultLocale][key]; !ok {
			t.Errorf("key %q present in en but missing from the default catalog", key)
		}
	}
	for key := range catalogs[DefaultLocale] {
		if _, ok := catalogs["en"][key]; !ok {
			t.Errorf("key %q present in the default catalog but missing from en", key)
		}
	}
}

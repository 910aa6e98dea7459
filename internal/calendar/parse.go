package calendar

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/statrsq/events-bot/pkg/logger"
)

// DateTime is a provider datetime value: either an explicit zoned instant or
// a bare calendar date for whole-day events. At most one field is set.
type DateTime struct {
	DateTime string
	Date     string
}

// Settings are the structured overrides embedded in an event description.
type Settings struct {
	ReminderIntervals []int  `json:"reminder_intervals"` // minutes
	PollInterval      int    `json:"poll_interval"`      // hours between repeat reminders
	Deadline          string `json:"deadline"`           // RFC 3339, last moment "going" is accepted
}

// settingsPattern matches the first brace-delimited block in a description.
var settingsPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseTime normalizes a provider datetime to UTC. A bare date becomes
// midnight UTC of that date. Unparseable input yields (zero, false); the
// caller logs and skips rather than failing the batch.
func ParseTime(dt DateTime) (time.Time, bool) {
	switch {
	case dt.DateTime != "":
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			logger.Warn().Str("value", dt.DateTime).Err(err).Msg("Unparseable event datetime")
			return time.Time{}, false
		}
		return t.UTC(), true
	case dt.Date != "":
		t, err := time.Parse("2006-01-02", dt.Date)
		if err != nil {
			logger.Warn().Str("value", dt.Date).Err(err).Msg("Unparseable event date")
			return time.Time{}, false
		}
		return t.UTC(), true
	default:
		return time.Time{}, false
	}
}

// ParseDeadline parses a deadline string from embedded settings into UTC.
// Hand-edited descriptions often omit the offset, so an offset-less ISO
// timestamp is accepted and read as UTC.
func ParseDeadline(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", value)
	}
	if err != nil {
		logger.Warn().Str("value", value).Err(err).Msg("Unparseable settings deadline")
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseSettings extracts the structured settings block from a free-text
// description. Real calendar editors produce malformed input regularly, so
// any parse failure degrades to empty settings instead of an error.
func ParseSettings(description string) Settings {
	if description == "" {
		return Settings{}
	}

	match := settingsPattern.FindString(description)
	if match == "" {
		return Settings{}
	}

	var settings Settings
	if err := json.Unmarshal([]byte(match), &settings); err != nil {
		logger.Warn().Err(err).Msg("Malformed settings block in event description")
		return Settings{}
	}
	return settings
}

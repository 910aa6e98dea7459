// Package notifier handles notification fan-out to Telegram recipients.
package notifier

import (
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/statrsq/events-bot/internal/i18n"
	"github.com/statrsq/events-bot/internal/storage"
	"github.com/statrsq/events-bot/internal/telegram"
	"github.com/statrsq/events-bot/pkg/logger"
)

const timeLayout = "02.01.2006 15:04"

// Sender is the outbound messaging channel. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TextFormatter resolves the notification text for one recipient's locale.
type TextFormatter func(tr i18n.Translator) string

// KeyboardBuilder resolves the optional inline keyboard for one recipient's
// locale.
type KeyboardBuilder func(tr i18n.Translator) *tgbotapi.InlineKeyboardMarkup

// Dispatcher delivers notifications to recipient cohorts with rate-limit
// backoff and per-recipient failure isolation. It only appends receipts and
// sends messages; it never mutates event or participation state.
type Dispatcher struct {
	bot          Sender
	users        *storage.UserStore
	participants *storage.ParticipationStore
	receipts     *storage.ReceiptStore
	delay        time.Duration
	sleep        func(time.Duration)
}

// NewDispatcher creates a new dispatcher instance.
func NewDispatcher(
	bot Sender,
	users *storage.UserStore,
	participants *storage.ParticipationStore,
	receipts *storage.ReceiptStore,
	delay time.Duration,
) *Dispatcher {
	return &Dispatcher{
		bot:          bot,
		users:        users,
		participants: participants,
		receipts:     receipts,
		delay:        delay,
		sleep:        time.Sleep,
	}
}

// DispatchToCohort sends a notification of the given kind to every recipient.
// Exactly one receipt is written for (event, kind) before the recipient loop
// starts: it records that a dispatch was attempted, independent of
// individual delivery outcomes.
func (d *Dispatcher) DispatchToCohort(
	recipients []storage.User,
	event *storage.Event,
	kind storage.NotificationKind,
	textFn TextFormatter,
	keyboardFn KeyboardBuilder,
) {
	if err := d.receipts.Create(event.ID, kind, time.Now().UTC()); err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Str("kind", string(kind)).
			Msg("Failed to record notification receipt")
	}

	sent, failed := 0, 0
	for _, user := range recipients {
		tr := i18n.For(user.Locale)

		text := textFn(tr)
		if text == "" {
			logger.Error().Int64("telegram_id", user.TelegramID).Msg("Empty notification text")
			failed++
			continue
		}

		var keyboard *tgbotapi.InlineKeyboardMarkup
		if keyboardFn != nil {
			keyboard = keyboardFn(tr)
		}

		if d.sendWithRetry(user.TelegramID, text, keyboard) {
			sent++
		} else {
			failed++
		}
	}

	logger.Info().
		Str("kind", string(kind)).
		Str("event", event.Title).
		Int("sent", sent).
		Int("failed", failed).
		Msg("Notification dispatch finished")
}

// Broadcast sends an identical message to every approved, non-banned user
// and returns the number of successful sends.
func (d *Dispatcher) Broadcast(text string) int {
	users, err := d.users.ListApproved()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load broadcast recipients")
		return 0
	}

	sent := 0
	for _, user := range users {
		if d.sendWithRetry(user.TelegramID, text, nil) {
			sent++
		}
	}

	logger.Info().Int("sent", sent).Int("total", len(users)).Msg("Broadcast finished")
	return sent
}

// NotifyNewEvent announces a newly observed event to all approved users.
func (d *Dispatcher) NotifyNewEvent(event *storage.Event) {
	users, err := d.users.ListApproved()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load recipients for new event")
		return
	}

	d.DispatchToCohort(users, event, storage.KindNewEvent,
		func(tr i18n.Translator) string { return formatNewEvent(tr, event) },
		reactionKeyboard(event.ID),
	)
}

// NotifyEventCancelled informs everyone who reacted going or thinking.
func (d *Dispatcher) NotifyEventCancelled(event *storage.Event) {
	users, err := d.cohortByReactions(event.ID, storage.ReactionGoing, storage.ReactionThinking)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to load cancellation cohort")
		return
	}

	d.DispatchToCohort(users, event, storage.KindCancelled,
		func(tr i18n.Translator) string {
			return tr.Get("event_cancelled_notification", event.Title, event.StartTime.Format(timeLayout))
		},
		nil,
	)
}

// NotifyEventPostponed informs everyone who reacted going or thinking about
// the new time.
func (d *Dispatcher) NotifyEventPostponed(event *storage.Event) {
	users, err := d.cohortByReactions(event.ID, storage.ReactionGoing, storage.ReactionThinking)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to load postponement cohort")
		return
	}

	d.DispatchToCohort(users, event, storage.KindPostponed,
		func(tr i18n.Translator) string {
			return tr.Get("event_postponed_notification", event.Title, event.StartTime.Format(timeLayout), event.Location)
		},
		reactionKeyboard(event.ID),
	)
}

// NotifyEventReminder nudges the undecided. Only users who reacted thinking
// are reminded; with nobody thinking the dispatch is skipped entirely, so no
// receipt is written and the reminder stays due.
func (d *Dispatcher) NotifyEventReminder(event *storage.Event) {
	users, err := d.cohortByReactions(event.ID, storage.ReactionThinking)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to load reminder cohort")
		return
	}
	if len(users) == 0 {
		return
	}

	d.DispatchToCohort(users, event, storage.KindReminder,
		func(tr i18n.Translator) string {
			return tr.Get("event_reminder_notification", event.Title, event.StartTime.Format(timeLayout), event.Location)
		},
		reactionKeyboard(event.ID),
	)
}

// sendWithRetry sends one message, applying the inter-message delay. On a
// rate-limit error it waits the required duration and retries exactly once.
func (d *Dispatcher) sendWithRetry(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) bool {
	if d.delay > 0 {
		d.sleep(d.delay)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	_, err := d.bot.Send(msg)
	if err == nil {
		return true
	}

	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		logger.Warn().
			Int64("chat_id", chatID).
			Int("retry_after", tgErr.RetryAfter).
			Msg("Rate limited, retrying once")
		d.sleep(time.Duration(tgErr.RetryAfter) * time.Second)

		if _, err := d.bot.Send(msg); err == nil {
			return true
		}
		logger.Error().Int64("chat_id", chatID).Msg("Send failed after rate-limit retry")
		return false
	}

	logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	return false
}

func (d *Dispatcher) cohortByReactions(eventID int64, reactions ...storage.Reaction) ([]storage.User, error) {
	participants, err := d.participants.GetByReactions(eventID, reactions)
	if err != nil {
		return nil, err
	}

	users := make([]storage.User, 0, len(participants))
	for _, p := range participants {
		if p.User.IsBanned {
			continue
		}
		users = append(users, p.User)
	}
	return users, nil
}

func reactionKeyboard(eventID int64) KeyboardBuilder {
	return func(tr i18n.Translator) *tgbotapi.InlineKeyboardMarkup {
		kb := telegram.EventReactionKeyboard(tr, eventID, "")
		return &kb
	}
}

func formatNewEvent(tr i18n.Translator, event *storage.Event) string {
	deadline := ""
	if event.Deadline.Valid {
		deadline = tr.Get("event_deadline_suffix", event.Deadline.Time.Format(timeLayout))
	}
	return tr.Get("event_new_notification",
		event.Title,
		event.Description,
		event.StartTime.Format(timeLayout),
		event.EndTime.Format(timeLayout),
		event.Location,
		deadline,
	)
}

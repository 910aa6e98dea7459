package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/statrsq/events-bot/internal/i18n"
	"github.com/statrsq/events-bot/internal/storage"
)

// EventReactionKeyboard builds the RSVP keyboard for an event. The selected
// reaction, if any, is highlighted.
func EventReactionKeyboard(tr i18n.Translator, eventID int64, selected storage.Reaction) tgbotapi.InlineKeyboardMarkup {
	reactions := []struct {
		reaction storage.Reaction
		key      string
		emoji    string
	}{
		{storage.ReactionGoing, "reaction_going", "✅"},
		{storage.ReactionNotGoing, "reaction_not_going", "❌"},
		{storage.ReactionThinking, "reaction_thinking", "🤔"},
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range reactions {
		text := fmt.Sprintf("%s %s", r.emoji, tr.Get(r.key))
		if r.reaction == selected {
			text = fmt.Sprintf("▶️ %s ◀️", tr.Get(r.key))
		}
		data := fmt.Sprintf("react:%d:%s", eventID, r.reaction)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, data),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// UserModerationKeyboard builds approve/ban buttons for a pending user.
func UserModerationKeyboard(tr i18n.Translator, userID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ %s", tr.Get("user_action_approve")),
				fmt.Sprintf("approve:%d", userID),
			),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🚫 %s", tr.Get("user_action_ban")),
				fmt.Sprintf("ban:%d", userID),
			),
		),
	)
}

package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/statrsq/events-bot/pkg/logger"
)

// BotAPI is the part of the Telegram client surface the handlers need.
// *tgbotapi.BotAPI satisfies it.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Interaction is a tagged wrapper over the two update shapes the bot
// answers: a plain message or an inline-keyboard callback. It exposes a
// uniform capability set so display helpers do not care which one they
// serve; the variant is selected explicitly at the update boundary.
type Interaction interface {
	ChatID() int64
	Locale() string
	Reply(text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	Acknowledge(text string)
}

type messageInteraction struct {
	api BotAPI
	msg *tgbotapi.Message
}

type callbackInteraction struct {
	api BotAPI
	cb  *tgbotapi.CallbackQuery
}

// FromMessage wraps a plain message update.
func FromMessage(api BotAPI, msg *tgbotapi.Message) Interaction {
	return &messageInteraction{api: api, msg: msg}
}

// FromCallback wraps a callback query update.
func FromCallback(api BotAPI, cb *tgbotapi.CallbackQuery) Interaction {
	return &callbackInteraction{api: api, cb: cb}
}

func (i *messageInteraction) ChatID() int64 {
	return i.msg.Chat.ID
}

func (i *messageInteraction) Locale() string {
	if i.msg.From != nil {
		return i.msg.From.LanguageCode
	}
	return ""
}

func (i *messageInteraction) Reply(text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(i.msg.Chat.ID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	_, err := i.api.Send(msg)
	return err
}

// Acknowledge is a no-op for plain messages; there is nothing to answer.
func (i *messageInteraction) Acknowledge(string) {}

// ChatID falls back to the presser's private chat when the originating
// message is absent (Telegram omits it for callbacks older than 48 hours).
func (i *callbackInteraction) ChatID() int64 {
	if i.cb.Message != nil {
		return i.cb.Message.Chat.ID
	}
	return i.cb.From.ID
}

func (i *callbackInteraction) Locale() string {
	return i.cb.From.LanguageCode
}

func (i *callbackInteraction) Reply(text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(i.ChatID(), text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	_, err := i.api.Send(msg)
	return err
}

func (i *callbackInteraction) Acknowledge(text string) {
	if _, err := i.api.Request(tgbotapi.NewCallback(i.cb.ID, text)); err != nil {
		logger.Warn().Err(err).Msg("Failed to answer callback")
	}
}

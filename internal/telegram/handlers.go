package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/statrsq/events-bot/internal/i18n"
	"github.com/statrsq/events-bot/internal/storage"
	"github.com/statrsq/events-bot/pkg/logger"
)

const timeLayout = "02.01.2006 15:04"

// Broadcaster sends an identical message to every approved user.
type Broadcaster interface {
	Broadcast(text string) int
}

// Handlers manages command and callback handling for the bot.
type Handlers struct {
	api          BotAPI
	users        *storage.UserStore
	events       *storage.EventStore
	participants *storage.ParticipationStore
	broadcaster  Broadcaster
}

// NewHandlers creates a new handlers instance. The API client is attached by
// the bot once it is authorized.
func NewHandlers(
	users *storage.UserStore,
	events *storage.EventStore,
	participants *storage.ParticipationStore,
	broadcaster Broadcaster,
) *Handlers {
	return &Handlers{
		users:        users,
		events:       events,
		participants: participants,
		broadcaster:  broadcaster,
	}
}

// SetBroadcaster attaches the broadcast backend. It is wired after
// construction because the dispatcher needs the authorized bot API.
func (h *Handlers) SetBroadcaster(b Broadcaster) {
	h.broadcaster = b
}

// HandleCommand routes commands to appropriate handlers.
func (h *Handlers) HandleCommand(msg *tgbotapi.Message) {
	command := msg.Command()
	args := msg.CommandArguments()

	logger.Debug().
		Str("command", command).
		Int64("chat_id", msg.Chat.ID).
		Msg("Received command")

	inter := FromMessage(h.api, msg)
	tr := i18n.For(inter.Locale())

	switch command {
	case "start":
		h.handleStart(msg, tr)
	case "help":
		h.reply(msg.Chat.ID, tr.Get("help_text"))
	case "users":
		h.requireAdmin(msg, tr, func() { h.showUsersOverview(inter, tr) })
	case "events":
		h.requireAdmin(msg, tr, func() { h.handleEvents(msg, tr) })
	case "broadcast":
		h.requireAdmin(msg, tr, func() { h.handleBroadcast(msg, args, tr) })
	case "approve":
		h.requireAdmin(msg, tr, func() { h.handleModerationCommand(msg, args, tr, h.approveUser) })
	case "ban":
		h.requireAdmin(msg, tr, func() { h.handleModerationCommand(msg, args, tr, h.banUser) })
	case "unban":
		h.requireAdmin(msg, tr, func() { h.handleModerationCommand(msg, args, tr, h.unbanUser) })
	}
}

// HandleCallback handles inline keyboard callbacks.
func (h *Handlers) HandleCallback(callback *tgbotapi.CallbackQuery) {
	parts := strings.Split(callback.Data, ":")
	if len(parts) == 0 {
		return
	}

	inter := FromCallback(h.api, callback)
	tr := i18n.For(inter.Locale())

	switch parts[0] {
	case "react":
		if len(parts) == 3 {
			h.handleReaction(callback, tr, parts[1], parts[2])
		}
	case "approve":
		if len(parts) == 2 {
			h.handleModerationCallback(callback, tr, parts[1], h.approveUser)
		}
	case "ban":
		if len(parts) == 2 {
			h.handleModerationCallback(callback, tr, parts[1], h.banUser)
		}
	case "users":
		if admin, _ := h.users.IsAdmin(callback.From.ID); !admin {
			h.answerAlert(callback, tr.Get("error_not_allowed"))
			return
		}
		h.showUsersOverview(inter, tr)
		inter.Acknowledge("")
	}
}

// handleStart registers a new user or refreshes an existing one. New users
// start unapproved; every admin is asked to moderate them.
func (h *Handlers) handleStart(msg *tgbotapi.Message, tr i18n.Translator) {
	from := msg.From
	if from == nil {
		return
	}

	user, created, err := h.users.CreateOrUpdate(from.ID, userDisplayName(from), from.UserName, from.LanguageCode)
	if err != nil {
		logger.Error().Err(err).Int64("telegram_id", from.ID).Msg("Failed to register user")
		h.reply(msg.Chat.ID, tr.Get("error_processing_request"))
		return
	}

	if created {
		logger.Info().Str("name", user.Name).Int64("telegram_id", user.TelegramID).Msg("New user registered")
		h.reply(msg.Chat.ID, tr.Get("start_welcome"))
		h.notifyAdminsNewUser(user)
		return
	}

	switch {
	case user.IsBanned:
		h.reply(msg.Chat.ID, tr.Get("start_banned"))
	case user.IsApproved:
		h.reply(msg.Chat.ID, tr.Get("start_welcome_back"))
	default:
		h.reply(msg.Chat.ID, tr.Get("start_pending"))
	}
}

// handleReaction records an RSVP reaction from an inline keyboard press.
func (h *Handlers) handleReaction(callback *tgbotapi.CallbackQuery, tr i18n.Translator, eventArg, reactionArg string) {
	eventID, err := strconv.ParseInt(eventArg, 10, 64)
	if err != nil {
		return
	}

	// Callback data is client-supplied; only the three known reactions may
	// reach the store.
	reaction := storage.Reaction(reactionArg)
	switch reaction {
	case storage.ReactionGoing, storage.ReactionNotGoing, storage.ReactionThinking:
	default:
		return
	}

	event, err := h.events.GetByID(eventID)
	if err != nil {
		logger.Error().Err(err).Int64("event_id", eventID).Msg("Failed to load event for reaction")
		return
	}
	user, err := h.users.GetByTelegramID(callback.From.ID)
	if err != nil {
		logger.Error().Err(err).Int64("telegram_id", callback.From.ID).Msg("Failed to load user for reaction")
		return
	}

	if event == nil || user == nil {
		h.answerAlert(callback, tr.Get("error_event_not_found"))
		return
	}

	if !user.IsApproved || user.IsBanned {
		h.answerAlert(callback, tr.Get("error_user_not_approved"))
		return
	}

	// Telegram omits Message from callbacks whose originating message is
	// older than 48 hours; fall back to the current time for those.
	reactedAt := time.Now().UTC()
	if callback.Message != nil {
		reactedAt = time.Unix(int64(callback.Message.Date), 0).UTC()
	}

	// Going is gated by the event deadline, evaluated against the reacting
	// message's timestamp.
	if reaction == storage.ReactionGoing && event.Deadline.Valid && event.Deadline.Time.Before(reactedAt) {
		h.answerAlert(callback, tr.Get("error_deadline_passed"))
		return
	}

	if _, _, err := h.participants.Upsert(event.ID, user.ID, reaction, reactedAt); err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Int64("user_id", user.ID).
			Msg("Failed to record reaction")
		h.answerAlert(callback, tr.Get("error_processing_request"))
		return
	}

	h.refreshReactionKeyboard(callback, tr, event.ID, reaction)

	h.answer(callback, tr.Get("reaction_selected", tr.Get(reactionKey(reaction))))
	logger.Info().Str("user", user.Name).Str("reaction", string(reaction)).
		Str("event", event.Title).Msg("Reaction recorded")
}

// showUsersOverview displays user stats and the pending queue. Reachable
// from the /users command and from the refresh callback.
func (h *Handlers) showUsersOverview(inter Interaction, tr i18n.Translator) {
	counts, err := h.users.CountsByStatus()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load user stats")
		return
	}

	text := tr.Get("users_stats", counts.Pending, counts.Approved, counts.Banned)
	if err := inter.Reply(text, nil); err != nil {
		logger.Error().Err(err).Msg("Failed to send users overview")
		return
	}

	pending, err := h.users.ListPending()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list pending users")
		return
	}
	if len(pending) == 0 {
		if err := inter.Reply(tr.Get("users_none_pending"), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to send pending list")
		}
		return
	}

	for i, user := range pending {
		text := tr.Get("users_pending_item", i+1, user.Name, usernameOrDash(user))
		keyboard := UserModerationKeyboard(tr, user.ID)
		if err := inter.Reply(text, &keyboard); err != nil {
			logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to send pending user")
		}
	}
}

// handleEvents lists active events with reaction counts.
func (h *Handlers) handleEvents(msg *tgbotapi.Message, tr i18n.Translator) {
	events, err := h.events.ListActive()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list active events")
		return
	}

	if len(events) == 0 {
		h.reply(msg.Chat.ID, tr.Get("events_none"))
		return
	}

	lines := []string{tr.Get("events_list_header")}
	for _, event := range events {
		going, _ := h.participants.CountByReaction(event.ID, storage.ReactionGoing)
		thinking, _ := h.participants.CountByReaction(event.ID, storage.ReactionThinking)
		lines = append(lines, tr.Get("events_list_item",
			event.Title, event.StartTime.Format(timeLayout), going, thinking))
	}

	h.reply(msg.Chat.ID, strings.Join(lines, "\n"))
}

// handleBroadcast sends the given text to every approved user.
func (h *Handlers) handleBroadcast(msg *tgbotapi.Message, args string, tr i18n.Translator) {
	text := strings.TrimSpace(args)
	if text == "" {
		h.reply(msg.Chat.ID, tr.Get("broadcast_usage"))
		return
	}

	sent := h.broadcaster.Broadcast(text)
	h.reply(msg.Chat.ID, tr.Get("broadcast_done", sent))
}

func (h *Handlers) handleModerationCommand(msg *tgbotapi.Message, args string, tr i18n.Translator, action func(int64, i18n.Translator) string) {
	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		h.reply(msg.Chat.ID, tr.Get("error_processing_request"))
		return
	}
	h.reply(msg.Chat.ID, action(userID, tr))
}

func (h *Handlers) handleModerationCallback(callback *tgbotapi.CallbackQuery, tr i18n.Translator, arg string, action func(int64, i18n.Translator) string) {
	admin, err := h.users.IsAdmin(callback.From.ID)
	if err != nil || !admin {
		h.answerAlert(callback, tr.Get("error_not_allowed"))
		return
	}

	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return
	}
	h.answer(callback, action(userID, tr))
}

// approveUser approves a pending user and tells them they are in.
func (h *Handlers) approveUser(userID int64, tr i18n.Translator) string {
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		return tr.Get("error_processing_request")
	}

	if err := h.users.Approve(userID); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to approve user")
		return tr.Get("error_processing_request")
	}

	userTr := i18n.For(user.Locale)
	h.reply(user.TelegramID, userTr.Get("user_approved_notice"))
	h.sendActiveBacklog(user, userTr)

	logger.Info().Str("name", user.Name).Msg("User approved")
	return tr.Get("user_action_done", user.Name)
}

// sendActiveBacklog shows a freshly approved user the active events they
// missed, each with a reaction keyboard so they can still RSVP.
func (h *Handlers) sendActiveBacklog(user *storage.User, tr i18n.Translator) {
	events, err := h.events.ListActive()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list active events for backlog")
		return
	}

	for i := range events {
		event := &events[i]

		deadline := ""
		if event.Deadline.Valid {
			deadline = tr.Get("event_deadline_suffix", event.Deadline.Time.Format(timeLayout))
		}
		text := tr.Get("event_new_notification",
			event.Title,
			event.Description,
			event.StartTime.Format(timeLayout),
			event.EndTime.Format(timeLayout),
			event.Location,
			deadline,
		)

		msg := tgbotapi.NewMessage(user.TelegramID, text)
		msg.ReplyMarkup = EventReactionKeyboard(tr, event.ID, "")
		if _, err := h.api.Send(msg); err != nil {
			logger.Warn().Err(err).Int64("telegram_id", user.TelegramID).
				Int64("event_id", event.ID).Msg("Failed to send backlog event")
		}
	}
}

func (h *Handlers) banUser(userID int64, tr i18n.Translator) string {
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		return tr.Get("error_processing_request")
	}

	if err := h.users.Ban(userID); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to ban user")
		return tr.Get("error_processing_request")
	}

	logger.Info().Str("name", user.Name).Msg("User banned")
	return tr.Get("user_action_done", user.Name)
}

func (h *Handlers) unbanUser(userID int64, tr i18n.Translator) string {
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		return tr.Get("error_processing_request")
	}

	if err := h.users.Unban(userID); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to unban user")
		return tr.Get("error_processing_request")
	}

	logger.Info().Str("name", user.Name).Msg("User unbanned")
	return tr.Get("user_action_done", user.Name)
}

// notifyAdminsNewUser asks every admin to moderate a freshly registered
// user.
func (h *Handlers) notifyAdminsNewUser(user *storage.User) {
	admins, err := h.users.ListAdmins()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list admins")
		return
	}

	for _, admin := range admins {
		tr := i18n.For(admin.Locale)
		text := tr.Get("admin_new_user_request", user.Name, usernameOrDash(*user))
		keyboard := UserModerationKeyboard(tr, user.ID)

		msg := tgbotapi.NewMessage(admin.TelegramID, text)
		msg.ReplyMarkup = keyboard
		if _, err := h.api.Send(msg); err != nil {
			logger.Warn().Err(err).Int64("admin_id", admin.TelegramID).Msg("Failed to notify admin")
		}
	}
}

func (h *Handlers) requireAdmin(msg *tgbotapi.Message, tr i18n.Translator, fn func()) {
	admin, err := h.users.IsAdmin(msg.From.ID)
	if err != nil {
		logger.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("Failed to check admin role")
		return
	}
	if !admin {
		h.reply(msg.Chat.ID, tr.Get("error_not_allowed"))
		return
	}
	fn()
}

func (h *Handlers) refreshReactionKeyboard(callback *tgbotapi.CallbackQuery, tr i18n.Translator, eventID int64, selected storage.Reaction) {
	if callback.Message == nil {
		return
	}

	keyboard := EventReactionKeyboard(tr, eventID, selected)
	edit := tgbotapi.NewEditMessageReplyMarkup(callback.Message.Chat.ID, callback.Message.MessageID, keyboard)
	if _, err := h.api.Request(edit); err != nil {
		// The markup may be unchanged; Telegram rejects no-op edits.
		logger.Debug().Err(err).Msg("Failed to refresh reaction keyboard")
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func (h *Handlers) answer(callback *tgbotapi.CallbackQuery, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallback(callback.ID, text)); err != nil {
		logger.Warn().Err(err).Msg("Failed to answer callback")
	}
}

func (h *Handlers) answerAlert(callback *tgbotapi.CallbackQuery, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallbackWithAlert(callback.ID, text)); err != nil {
		logger.Warn().Err(err).Msg("Failed to answer callback with alert")
	}
}

func reactionKey(reaction storage.Reaction) string {
	switch reaction {
	case storage.ReactionGoing:
		return "reaction_going"
	case storage.ReactionNotGoing:
		return "reaction_not_going"
	case storage.ReactionThinking:
		return "reaction_thinking"
	default:
		return string(reaction)
	}
}

func userDisplayName(from *tgbotapi.User) string {
	name := from.FirstName
	if from.LastName != "" {
		name += " " + from.LastName
	}
	if name == "" {
		name = from.UserName
	}
	return name
}

func usernameOrDash(user storage.User) string {
	if user.Username.Valid && user.Username.String != "" {
		return "@" + user.Username.String
	}
	return fmt.Sprintf("id:%d", user.TelegramID)
}

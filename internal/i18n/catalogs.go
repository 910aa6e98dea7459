package i18n

var catalogs = map[string]map[string]string{
	"ru": {
		"start_welcome":      "Добро пожаловать! Ваша заявка отправлена администраторам. Вы получите уведомление после одобрения.",
		"start_welcome_back": "С возвращением! Вы будете получать уведомления о событиях сообщества.",
		"start_pending":      "Ваша заявка ещё на рассмотрении. Пожалуйста, подождите одобрения администратора.",
		"start_banned":       "Доступ к боту ограничен.",

		"admin_new_user_request": "Новая заявка на вступление:\n\n%s (%s)",
		"user_approved_notice":   "Ваша заявка одобрена! Теперь вы будете получать уведомления о событиях.",

		"event_new_notification":       "Новое событие: %s\n\n%s\n\nНачало: %s\nОкончание: %s\nМесто: %s%s",
		"event_deadline_suffix":        "\nДедлайн для ответа «Пойду»: %s",
		"event_cancelled_notification": "Событие отменено: %s\n\nБыло запланировано на %s.",
		"event_postponed_notification": "Событие перенесено: %s\n\nНовое время: %s\nМесто: %s",
		"event_reminder_notification":  "Напоминание: %s\n\nНачало: %s\nМесто: %s\n\nВы ещё не определились — пойдёте?",

		"reaction_going":     "Пойду",
		"reaction_not_going": "Не пойду",
		"reaction_thinking":  "Подумаю",
		"reaction_selected":  "Вы выбрали: %s",

		"error_event_not_found":    "Событие не найдено.",
		"error_user_not_approved":  "Ваша заявка ещё не одобрена.",
		"error_deadline_passed":    "Дедлайн для ответа «Пойду» уже прошёл.",
		"error_not_allowed":        "Команда доступна только администраторам.",
		"error_processing_request": "Не удалось обработать запрос, попробуйте позже.",

		"users_stats":        "Пользователи:\n• Ожидают: %d\n• Одобрены: %d\n• Забанены: %d",
		"users_pending_item": "%d. %s (%s)",
		"users_none_pending": "Нет заявок на рассмотрении.",
		"user_action_approve": "Одобрить",
		"user_action_ban":     "Забанить",
		"user_action_done":    "Готово: %s",

		"events_list_header": "Активные события:",
		"events_list_item":   "• %s — %s (пойдут: %d, думают: %d)",
		"events_none":        "Активных событий нет.",

		"broadcast_usage": "Использование: /broadcast <текст>",
		"broadcast_done":  "Рассылка отправлена %d пользователям.",

		"help_text": "Команды:\n/start — регистрация\n/help — помощь\n\nАдминистраторам:\n/users — заявки и статистика\n/events — активные события\n/broadcast <текст> — рассылка",
	},
	"en": {
		"start_welcome":      "Welcome! Your request has been sent to the admins. You will be notified once approved.",
		"start_welcome_back": "Welcome back! You will receive community event notifications.",
		"start_pending":      "Your request is still pending. Please wait for admin approval.",
		"start_banned":       "Access to this bot is restricted.",

		"admin_new_user_request": "New membership request:\n\n%s (%s)",
		"user_approved_notice":   "Your request has been approved! You will now receive event notifications.",

		"event_new_notification":       "New event: %s\n\n%s\n\nStarts: %s\nEnds: %s\nLocation: %s%s",
		"event_deadline_suffix":        "\nDeadline to answer \"Going\": %s",
		"event_cancelled_notification": "Event cancelled: %s\n\nIt was scheduled for %s.",
		"event_postponed_notification": "Event rescheduled: %s\n\nNew time: %s\nLocation: %s",
		"event_reminder_notification":  "Reminder: %s\n\nStarts: %s\nLocation: %s\n\nStill undecided — are you going?",

		"reaction_going":     "Going",
		"reaction_not_going": "Not going",
		"reaction_thinking":  "Thinking",
		"reaction_selected":  "You chose: %s",

		"error_event_not_found":    "Event not found.",
		"error_user_not_approved":  "Your request has not been approved yet.",
		"error_deadline_passed":    "The deadline to answer \"Going\" has passed.",
		"error_not_allowed":        "This command is for admins only.",
		"error_processing_request": "Failed to process the request, please try again later.",

		"users_stats":        "Users:\n• Pending: %d\n• Approved: %d\n• Banned: %d",
		"users_pending_item": "%d. %s (%s)",
		"users_none_pending": "No pending requests.",
		"user_action_approve": "Approve",
		"user_action_ban":     "Ban",
		"user_action_done":    "Done: %s",

		"events_list_header": "Active events:",
		"events_list_item":   "• %s — %s (going: %d, thinking: %d)",
		"events_none":        "No active events.",

		"broadcast_usage": "Usage: /broadcast <text>",
		"broadcast_done":  "Broadcast delivered to %d users.",

		"help_text": "Commands:\n/start — register\n/help — this help\n\nFor admins:\n/users — requests and stats\n/events — active events\n/broadcast <text> — broadcast",
	},
}

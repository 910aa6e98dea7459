// Package storage provides database operations and data models.
package storage

import (
	"database/sql"
	"time"
)

// EventStatus represents the lifecycle status of an event.
type EventStatus string

const (
	StatusActive    EventStatus = "active"
	StatusCancelled EventStatus = "cancelled"
	StatusPostponed EventStatus = "postponed"
	StatusCompleted EventStatus = "completed"
)

// Reaction represents a user's RSVP choice for an event.
type Reaction string

const (
	ReactionGoing    Reaction = "going"
	ReactionNotGoing Reaction = "not_going"
	ReactionThinking Reaction = "thinking"
)

// NotificationKind classifies a dispatched notification.
type NotificationKind string

const (
	KindNewEvent  NotificationKind = "new_event"
	KindCancelled NotificationKind = "cancelled"
	KindPostponed NotificationKind = "postponed"
	KindReminder  NotificationKind = "reminder"
)

// Role represents a user's access level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a Telegram user known to the bot.
type User struct {
	ID         int64          `db:"id"`
	TelegramID int64          `db:"telegram_id"`
	Name       string         `db:"name"`
	Username   sql.NullString `db:"username"`
	Locale     string         `db:"locale"`
	Role       Role           `db:"role"`
	IsApproved bool           `db:"is_approved"`
	IsBanned   bool           `db:"is_banned"`
	CreatedAt  time.Time      `db:"created_at"`
}

// Event represents a calendar event mirrored from the external source.
type Event struct {
	ID                int64        `db:"id"`
	ExternalID        string       `db:"external_id"`
	Title             string       `db:"title"`
	Description       string       `db:"description"`
	StartTime         time.Time    `db:"start_time"`
	EndTime           time.Time    `db:"end_time"`
	Location          string       `db:"location"`
	Status            EventStatus  `db:"status"`
	ReminderIntervals string       `db:"reminder_intervals"` // JSON array of minutes
	PollInterval      int          `db:"poll_interval"`      // Repeat reminder interval in hours
	Deadline          sql.NullTime `db:"deadline"`           // Last moment a "going" reaction is accepted
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

// Participation represents a user's reaction to an event.
type Participation struct {
	ID        int64          `db:"id"`
	EventID   int64          `db:"event_id"`
	UserID    int64          `db:"user_id"`
	Reaction  sql.NullString `db:"reaction"`
	ReactedAt sql.NullTime   `db:"reacted_at"`
	CreatedAt time.Time      `db:"created_at"`
}

// Receipt records that a notification dispatch was attempted for an event.
type Receipt struct {
	ID      int64            `db:"id"`
	EventID int64            `db:"event_id"`
	Kind    NotificationKind `db:"kind"`
	SentAt  time.Time        `db:"sent_at"`
}

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// EventStore handles event-related database operations.
type EventStore struct {
	db *Database
}

// NewEventStore creates a new event store.
func NewEventStore(db *Database) *EventStore {
	return &EventStore{db: db}
}

// EventPatch is a sparse field update for an event. Nil fields are left
// unchanged, they never clear the stored value.
type EventPatch struct {
	Title             *string
	Description       *string
	StartTime         *time.Time
	EndTime           *time.Time
	Location          *string
	Status            *EventStatus
	ReminderIntervals []int // nil means no change
	PollInterval      *int
	Deadline          *time.Time
}

// GetByID returns an event by its internal id, or nil if not found.
func (s *EventStore) GetByID(id int64) (*Event, error) {
	var ev Event
	query := `SELECT * FROM events WHERE id = ?`
	err := s.db.Get(&ev, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetByExternalID returns the event with the given external id, or nil if
// none exists.
func (s *EventStore) GetByExternalID(externalID string) (*Event, error) {
	var ev Event
	query := `SELECT * FROM events WHERE external_id = ?`
	err := s.db.Get(&ev, query, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetByExternalIDs returns all events matching the given external ids.
// Unknown ids are silently omitted.
func (s *EventStore) GetByExternalIDs(externalIDs []string) ([]Event, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM events WHERE external_id IN (?)`, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var events []Event
	if err := s.db.Select(&events, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return events, nil
}

// Create inserts a new event and returns the stored record. A duplicate
// external id yields (nil, nil); the caller treats that as a skip.
func (s *EventStore) Create(externalID, title, description string, start, end time.Time, location string) (*Event, error) {
	query := `
		INSERT INTO events (external_id, title, description, start_time, end_time, location, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, externalID, title, description, start.UTC(), end.UTC(), location, StatusActive)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, nil
		}
		return nil, err
	}

	return s.GetByExternalID(externalID)
}

// Update applies a sparse patch to an event. Returns false when no row was
// updated or the patch was empty.
func (s *EventStore) Update(eventID int64, patch EventPatch) (bool, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.StartTime != nil {
		add("start_time", patch.StartTime.UTC())
	}
	if patch.EndTime != nil {
		add("end_time", patch.EndTime.UTC())
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ReminderIntervals != nil {
		intervalsJSON, err := json.Marshal(patch.ReminderIntervals)
		if err != nil {
			return false, fmt.Errorf("failed to marshal reminder intervals: %w", err)
		}
		add("reminder_intervals", string(intervalsJSON))
	}
	if patch.PollInterval != nil {
		add("poll_interval", *patch.PollInterval)
	}
	if patch.Deadline != nil {
		add("deadline", patch.Deadline.UTC())
	}

	if len(sets) == 0 {
		return false, nil
	}

	add("updated_at", time.Now().UTC())

	query := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, eventID)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListActive returns all events with status active.
func (s *EventStore) ListActive() ([]Event, error) {
	var events []Event
	query := `SELECT * FROM events WHERE status = ? ORDER BY start_time`
	err := s.db.Select(&events, query, StatusActive)
	return events, err
}

// ReminderIntervalList decodes the event's reminder intervals. A malformed
// stored value yields an empty list.
func (e *Event) ReminderIntervalList() []int {
	var intervals []int
	if err := json.Unmarshal([]byte(e.ReminderIntervals), &intervals); err != nil {
		return nil
	}
	return intervals
}

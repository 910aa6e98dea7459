package storage

import (
	"database/sql"
	"errors"
	"time"
)

// ReceiptStore handles notification receipt database operations. Receipts
// are append-only; one row records that a dispatch batch was attempted for
// an (event, kind) pair.
type ReceiptStore struct {
	db *Database
}

// NewReceiptStore creates a new receipt store.
func NewReceiptStore(db *Database) *ReceiptStore {
	return &ReceiptStore{db: db}
}

// Create appends a receipt for the given event and kind.
func (s *ReceiptStore) Create(eventID int64, kind NotificationKind, sentAt time.Time) error {
	query := `INSERT INTO event_notifications (event_id, kind, sent_at) VALUES (?, ?, ?)`
	_, err := s.db.Exec(query, eventID, kind, sentAt.UTC())
	return err
}

// LastReminder returns the most recent reminder receipt for an event, or
// nil when no reminder has been sent yet.
func (s *ReceiptStore) LastReminder(eventID int64) (*Receipt, error) {
	var receipt Receipt
	query := `
		SELECT * FROM event_notifications
		WHERE event_id = ? AND kind = ?
		ORDER BY sent_at DESC LIMIT 1
	`
	err := s.db.Get(&receipt, query, eventID, KindReminder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

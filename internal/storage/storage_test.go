package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateEvent(t *testing.T, store *EventStore, externalID string) *Event {
	t.Helper()

	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	event, err := store.Create(externalID, "Standup", "daily sync", start, start.Add(30*time.Minute), "Room 1")
	if err != nil {
		t.Fatalf("failed to create event: %v", err)
	}
	if event == nil {
		t.Fatalf("event %q unexpectedly reported as duplicate", externalID)
	}
	return event
}

func mustCreateUser(t *testing.T, store *UserStore, telegramID int64, name string) *User {
	t.Helper()

	user, _, err := store.CreateOrUpdate(telegramID, name, "", "en")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

package storage

import (
	"testing"
	"time"
)

func TestEventStoreCreateDuplicate(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)

	first := mustCreateEvent(t, store, "ext-1")
	if first.Status != StatusActive {
		t.Errorf("new event status = %s, want active", first.Status)
	}

	start := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	dup, err := store.Create("ext-1", "Other", "", start, start.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("duplicate create returned error: %v", err)
	}
	if dup != nil {
		t.Error("duplicate external id should yield nil, not a record")
	}
}

func TestEventStoreGetByExternalIDs(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)

	mustCreateEvent(t, store, "a")
	mustCreateEvent(t, store, "b")

	events, err := store.GetByExternalIDs([]string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("batch lookup failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (unknown ids silently omitted)", len(events))
	}

	events, err = store.GetByExternalIDs(nil)
	if err != nil {
		t.Fatalf("empty batch lookup failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("empty id set should yield no events, got %d", len(events))
	}
}

func TestEventStoreUpdateSparsePatch(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)

	event := mustCreateEvent(t, store, "ext-1")

	newTitle := "Planning"
	updated, err := store.Update(event.ID, EventPatch{Title: &newTitle})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated {
		t.Fatal("expected update to affect the row")
	}

	got, err := store.GetByID(event.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.Title != "Planning" {
		t.Errorf("title = %q, want Planning", got.Title)
	}
	// Nil patch fields leave stored values untouched
	if got.Description != event.Description {
		t.Errorf("description changed by sparse patch: %q", got.Description)
	}
	if !got.StartTime.Equal(event.StartTime) {
		t.Errorf("start time changed by sparse patch: %v", got.StartTime)
	}

	// Empty patch is a no-op
	updated, err = store.Update(event.ID, EventPatch{})
	if err != nil {
		t.Fatalf("empty update failed: %v", err)
	}
	if updated {
		t.Error("empty patch should not report an update")
	}
}

func TestEventStoreUpdateSettings(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)

	event := mustCreateEvent(t, store, "ext-1")

	poll := 12
	deadline := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	_, err := store.Update(event.ID, EventPatch{
		ReminderIntervals: []int{60, 1440},
		PollInterval:      &poll,
		Deadline:          &deadline,
	})
	if err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	got, err := store.GetByID(event.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	intervals := got.ReminderIntervalList()
	if len(intervals) != 2 || intervals[0] != 60 || intervals[1] != 1440 {
		t.Errorf("reminder intervals = %v, want [60 1440]", intervals)
	}
	if got.PollInterval != 12 {
		t.Errorf("poll interval = %d, want 12", got.PollInterval)
	}
	if !got.Deadline.Valid || !got.Deadline.Time.Equal(deadline) {
		t.Errorf("deadline = %+v, want %v", got.Deadline, deadline)
	}
}

func TestEventStoreListActive(t *testing.T) {
	db := newTestDB(t)
	store := NewEventStore(db)

	active := mustCreateEvent(t, store, "active")
	cancelled := mustCreateEvent(t, store, "cancelled")

	status := StatusCancelled
	if _, err := store.Update(cancelled.ID, EventPatch{Status: &status}); err != nil {
		t.Fatalf("status update failed: %v", err)
	}

	events, err := store.ListActive()
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != active.ID {
		t.Errorf("expected only the active event, got %d rows", len(events))
	}
}

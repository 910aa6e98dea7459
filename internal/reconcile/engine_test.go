package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/statrsq/events-bot/internal/calendar"
	"github.com/statrsq/events-bot/internal/storage"
)

type fakeSource struct {
	events []calendar.RawEvent
	err    error
}

func (s *fakeSource) Events(ctx context.Context) ([]calendar.RawEvent, error) {
	return s.events, s.err
}

// fakeDispatcher records fan-out calls and mirrors the real dispatcher's
// receipt contract: one receipt per dispatch.
type fakeDispatcher struct {
	receipts *storage.ReceiptStore
	now      func() time.Time

	newEvents []int64
	cancelled []int64
	postponed []int64
	reminders []int64
}

func (d *fakeDispatcher) NotifyNewEvent(event *storage.Event) {
	d.newEvents = append(d.newEvents, event.ID)
	d.receipts.Create(event.ID, storage.KindNewEvent, d.now())
}

func (d *fakeDispatcher) NotifyEventCancelled(event *storage.Event) {
	d.cancelled = append(d.cancelled, event.ID)
	d.receipts.Create(event.ID, storage.KindCancelled, d.now())
}

func (d *fakeDispatcher) NotifyEventPostponed(event *storage.Event) {
	d.postponed = append(d.postponed, event.ID)
	d.receipts.Create(event.ID, storage.KindPostponed, d.now())
}

func (d *fakeDispatcher) NotifyEventReminder(event *storage.Event) {
	d.reminders = append(d.reminders, event.ID)
	d.receipts.Create(event.ID, storage.KindReminder, d.now())
}

type testEnv struct {
	engine     *Engine
	source     *fakeSource
	dispatcher *fakeDispatcher
	events     *storage.EventStore
	receipts   *storage.ReceiptStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	events := storage.NewEventStore(db)
	receipts := storage.NewReceiptStore(db)
	source := &fakeSource{}
	dispatcher := &fakeDispatcher{receipts: receipts, now: time.Now}

	engine := NewEngine(source, events, receipts, dispatcher, time.Minute)

	return &testEnv{
		engine:     engine,
		source:     source,
		dispatcher: dispatcher,
		events:     events,
		receipts:   receipts,
	}
}

func rawStandup() calendar.RawEvent {
	return calendar.RawEvent{
		ID:          "a",
		Summary:     "Standup",
		Description: "daily sync",
		Location:    "Room 1",
		Status:      "confirmed",
		Start:       calendar.DateTime{DateTime: "2025-01-01T10:00:00Z"},
		End:         calendar.DateTime{DateTime: "2025-01-01T10:30:00Z"},
	}
}

func TestNewEventDetection(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()}

	env.engine.SyncOnce(context.Background())

	event, err := env.events.GetByExternalID("a")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if event == nil {
		t.Fatal("expected event to be created")
	}
	if event.Title != "Standup" {
		t.Errorf("title = %q, want Standup", event.Title)
	}
	if event.Status != storage.StatusActive {
		t.Errorf("status = %s, want active", event.Status)
	}
	want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if !event.StartTime.Equal(want) {
		t.Errorf("start = %v, want %v", event.StartTime, want)
	}
	if !event.EndTime.Equal(want.Add(30 * time.Minute)) {
		t.Errorf("end = %v", event.EndTime)
	}
	if len(env.dispatcher.newEvents) != 1 {
		t.Errorf("new event dispatched %d times, want 1", len(env.dispatcher.newEvents))
	}
}

func TestIdempotentReconciliation(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()}

	env.engine.SyncOnce(context.Background())
	first, _ := env.events.GetByExternalID("a")

	env.engine.SyncOnce(context.Background())

	second, _ := env.events.GetByExternalID("a")
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("second tick with unchanged source should produce zero writes")
	}
	if len(env.dispatcher.newEvents) != 1 {
		t.Errorf("new event dispatched %d times across two ticks, want 1", len(env.dispatcher.newEvents))
	}
	if len(env.dispatcher.postponed) != 0 || len(env.dispatcher.cancelled) != 0 {
		t.Error("second tick dispatched spurious notifications")
	}
}

func TestReschedulePrecedence(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()}
	env.engine.SyncOnce(context.Background())

	// Both the start time and the title change; the time change wins for
	// notification purposes, and both fields are persisted.
	changed := rawStandup()
	changed.Summary = "Standup (moved)"
	changed.Start = calendar.DateTime{DateTime: "2025-01-01T12:00:00Z"}
	changed.End = calendar.DateTime{DateTime: "2025-01-01T12:30:00Z"}
	env.source.events = []calendar.RawEvent{changed}

	env.engine.SyncOnce(context.Background())

	event, _ := env.events.GetByExternalID("a")
	if event.Title != "Standup (moved)" {
		t.Errorf("title = %q, want updated title", event.Title)
	}
	want := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if !event.StartTime.Equal(want) {
		t.Errorf("start = %v, want %v", event.StartTime, want)
	}
	if len(env.dispatcher.postponed) != 1 {
		t.Errorf("postponed dispatched %d times, want 1", len(env.dispatcher.postponed))
	}
}

func TestContentEditWithoutNotification(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()}
	env.engine.SyncOnce(context.Background())

	changed := rawStandup()
	changed.Summary = "Standup (renamed)"
	env.source.events = []calendar.RawEvent{changed}

	env.engine.SyncOnce(context.Background())

	event, _ := env.events.GetByExternalID("a")
	if event.Title != "Standup (renamed)" {
		t.Errorf("title = %q, want renamed title persisted", event.Title)
	}
	if len(env.dispatcher.postponed) != 0 {
		t.Error("content-only edit must not dispatch a postponement")
	}
}

func TestCancellationIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()}
	env.engine.SyncOnce(context.Background())

	cancelled := rawStandup()
	cancelled.Status = "cancelled"
	env.source.events = []calendar.RawEvent{cancelled}

	env.engine.SyncOnce(context.Background())

	event, _ := env.events.GetByExternalID("a")
	if event.Status != storage.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", event.Status)
	}
	if len(env.dispatcher.cancelled) != 1 {
		t.Errorf("cancelled dispatched %d times, want 1", len(env.dispatcher.cancelled))
	}

	// Re-observing the cancelled event, even with content differences, must
	// neither re-apply updates nor re-dispatch.
	revived := rawStandup()
	revived.Summary = "Changed after cancel"
	env.source.events = []calendar.RawEvent{revived}
	env.engine.SyncOnce(context.Background())

	env.source.events = []calendar.RawEvent{cancelled}
	env.engine.SyncOnce(context.Background())

	event, _ = env.events.GetByExternalID("a")
	if event.Title != "Standup" {
		t.Errorf("content update applied to cancelled event: %q", event.Title)
	}
	if len(env.dispatcher.cancelled) != 1 {
		t.Errorf("cancelled re-dispatched, total %d", len(env.dispatcher.cancelled))
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	env := newTestEnv(t)

	bad := rawStandup()
	bad.ID = "b"
	bad.Start = calendar.DateTime{DateTime: "not-a-time"}

	third := rawStandup()
	third.ID = "c"

	env.source.events = []calendar.RawEvent{rawStandup(), bad, third}
	env.engine.SyncOnce(context.Background())

	for _, id := range []string{"a", "c"} {
		if event, _ := env.events.GetByExternalID(id); event == nil {
			t.Errorf("event %q should have been created despite the bad one", id)
		}
	}
	if event, _ := env.events.GetByExternalID("b"); event != nil {
		t.Error("event with unparseable start time must be skipped")
	}
	if len(env.dispatcher.newEvents) != 2 {
		t.Errorf("new event dispatched %d times, want 2", len(env.dispatcher.newEvents))
	}
}

func TestFetchFailureAbortsTick(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()}
	env.source.err = errors.New("provider unreachable")

	env.engine.SyncOnce(context.Background())

	if event, _ := env.events.GetByExternalID("a"); event != nil {
		t.Error("no partial diff may be applied when the fetch fails")
	}
	if len(env.dispatcher.newEvents) != 0 {
		t.Error("no notifications may go out when the fetch fails")
	}

	// The next tick retries unconditionally.
	env.source.err = nil
	env.engine.SyncOnce(context.Background())
	if event, _ := env.events.GetByExternalID("a"); event == nil {
		t.Error("tick after recovery should process normally")
	}
}

func TestSettingsAppliedAtCreation(t *testing.T) {
	env := newTestEnv(t)

	raw := rawStandup()
	raw.Description = `Team offsite {"reminder_intervals": [60], "poll_interval": 12, "deadline": "2025-01-01T08:00:00Z"}`
	env.source.events = []calendar.RawEvent{raw}

	env.engine.SyncOnce(context.Background())

	event, _ := env.events.GetByExternalID("a")
	if event == nil {
		t.Fatal("expected event to be created")
	}
	if intervals := event.ReminderIntervalList(); len(intervals) != 1 || intervals[0] != 60 {
		t.Errorf("reminder intervals = %v, want [60]", intervals)
	}
	if event.PollInterval != 12 {
		t.Errorf("poll interval = %d, want 12", event.PollInterval)
	}
	if !event.Deadline.Valid {
		t.Fatal("deadline not applied")
	}
	want := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	if !event.Deadline.Time.Equal(want) {
		t.Errorf("deadline = %v, want %v", event.Deadline.Time, want)
	}
}

func TestReminderGating(t *testing.T) {
	env := newTestEnv(t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	env.engine.now = func() time.Time { return now }
	env.dispatcher.now = env.engine.now

	raw := rawStandup()
	raw.Description = `{"reminder_intervals": [60], "poll_interval": 24}`
	env.source.events = []calendar.RawEvent{raw}

	// The creation tick sweeps too: no receipt yet, so a reminder is due.
	env.engine.SyncOnce(context.Background())
	if len(env.dispatcher.reminders) != 1 {
		t.Fatalf("expected first reminder, got %d", len(env.dispatcher.reminders))
	}

	// A fresh receipt gates a 24h poll interval.
	env.dispatcher.reminders = nil
	env.engine.SyncOnce(context.Background())
	if len(env.dispatcher.reminders) != 0 {
		t.Error("reminder dispatched before the poll interval elapsed")
	}

	// 25 hours later exactly one new reminder goes out.
	env.engine.now = func() time.Time { return now.Add(25 * time.Hour) }
	env.dispatcher.now = env.engine.now
	env.dispatcher.reminders = nil
	env.engine.SyncOnce(context.Background())
	if len(env.dispatcher.reminders) != 1 {
		t.Errorf("expected exactly one reminder after 25h, got %d", len(env.dispatcher.reminders))
	}
}

func TestReminderSkippedWithoutIntervals(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()} // no settings block

	env.engine.SyncOnce(context.Background())
	env.engine.SyncOnce(context.Background())

	if len(env.dispatcher.reminders) != 0 {
		t.Error("events without reminder intervals must never be reminded")
	}
}

func TestCancelledUnknownEventNotCreated(t *testing.T) {
	env := newTestEnv(t)

	gone := rawStandup()
	gone.Status = "cancelled"
	env.source.events = []calendar.RawEvent{gone}

	env.engine.SyncOnce(context.Background())

	if event, _ := env.events.GetByExternalID("a"); event != nil {
		t.Error("an event already cancelled upstream must not be created locally")
	}
	if len(env.dispatcher.newEvents) != 0 || len(env.dispatcher.cancelled) != 0 {
		t.Error("no notifications expected for a never-stored cancelled event")
	}
}

func TestEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	env.source.events = []calendar.RawEvent{rawStandup()}

	env.engine.SyncOnce(context.Background())

	event, err := env.events.GetByExternalID("a")
	if err != nil || event == nil {
		t.Fatalf("expected stored event, got %v, err %v", event, err)
	}
	if event.Status != storage.StatusActive {
		t.Errorf("status = %s, want active", event.Status)
	}

	last, err := env.receipts.LastReminder(event.ID)
	if err != nil {
		t.Fatalf("receipt lookup failed: %v", err)
	}
	if last != nil {
		t.Error("no reminder receipt expected for a fresh event")
	}
	if len(env.dispatcher.newEvents) != 1 {
		t.Errorf("dispatch attempted %d times, want 1", len(env.dispatcher.newEvents))
	}
}

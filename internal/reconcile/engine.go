// Package reconcile implements the calendar reconciliation engine: a timer
// loop that pulls the external event list, diffs it against local storage,
// applies classified changes and triggers notification fan-out.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/statrsq/events-bot/internal/calendar"
	"github.com/statrsq/events-bot/internal/storage"
	"github.com/statrsq/events-bot/pkg/logger"
)

// Source is the external calendar provider.
type Source interface {
	Events(ctx context.Context) ([]calendar.RawEvent, error)
}

// Dispatcher triggers notification fan-out for classified changes.
type Dispatcher interface {
	NotifyNewEvent(event *storage.Event)
	NotifyEventCancelled(event *storage.Event)
	NotifyEventPostponed(event *storage.Event)
	NotifyEventReminder(event *storage.Event)
}

// Engine periodically reconciles the external calendar against local
// storage. One goroutine owns the tick loop, so ticks never overlap.
type Engine struct {
	source     Source
	events     *storage.EventStore
	receipts   *storage.ReceiptStore
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a new reconciliation engine.
func NewEngine(
	source Source,
	events *storage.EventStore,
	receipts *storage.ReceiptStore,
	dispatcher Dispatcher,
	interval time.Duration,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	if interval < 10*time.Second {
		interval = 10 * time.Second
	}

	return &Engine{
		source:     source,
		events:     events,
		receipts:   receipts,
		dispatcher: dispatcher,
		interval:   interval,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the reconciliation loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.loop()
	logger.Info().Dur("interval", e.interval).Msg("Reconciliation engine started")
}

// Stop gracefully stops the engine. An in-flight tick is allowed to finish.
func (e *Engine) Stop() {
	logger.Info().Msg("Stopping reconciliation engine")
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) loop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.SyncOnce(e.ctx)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.SyncOnce(e.ctx)
		}
	}
}

// SyncOnce runs a single reconciliation tick: fetch, diff, apply, notify,
// then the reminder sweep. A fetch failure aborts the whole tick; any other
// failure is contained to the event it occurred on.
func (e *Engine) SyncOnce(ctx context.Context) {
	raw, err := e.source.Events(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Calendar fetch failed, skipping tick")
		return
	}

	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		ids = append(ids, r.ID)
	}

	locals, err := e.events.GetByExternalIDs(ids)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load local events, skipping tick")
		return
	}

	localByID := make(map[string]storage.Event, len(locals))
	for _, ev := range locals {
		localByID[ev.ExternalID] = ev
	}

	for _, r := range raw {
		var err error
		if local, ok := localByID[r.ID]; ok {
			err = e.updateEvent(&local, r)
		} else {
			err = e.createEvent(r)
		}
		if err != nil {
			logger.Error().Err(err).Str("external_id", r.ID).Msg("Failed to process event")
		}
	}

	e.reminderSweep()
}

// createEvent handles a raw event not yet present locally. The event is
// created active, the description settings are applied as a follow-up sparse
// update, and a new-event notification goes out to all approved users.
func (e *Engine) createEvent(r calendar.RawEvent) error {
	if r.Cancelled() {
		// Already removed upstream before we ever stored it.
		logger.Debug().Str("external_id", r.ID).Msg("Skipping cancelled event never seen before")
		return nil
	}

	start, okStart := calendar.ParseTime(r.Start)
	end, okEnd := calendar.ParseTime(r.End)
	if !okStart || !okEnd {
		// Downstream ordering and deadline logic assume both times present.
		logger.Warn().Str("external_id", r.ID).Str("title", r.Summary).
			Msg("Skipping event with unparseable time range")
		return nil
	}

	title := r.Summary
	if title == "" {
		title = "Untitled"
	}

	event, err := e.events.Create(r.ID, title, r.Description, start, end, r.Location)
	if err != nil {
		return err
	}
	if event == nil {
		// Duplicate external id, someone beat us to it.
		logger.Debug().Str("external_id", r.ID).Msg("Event already exists, skipping create")
		return nil
	}

	// Settings are applied once at creation and frozen afterwards.
	settings := calendar.ParseSettings(r.Description)
	patch := storage.EventPatch{ReminderIntervals: settings.ReminderIntervals}
	if settings.PollInterval > 0 {
		patch.PollInterval = &settings.PollInterval
	}
	if deadline, ok := calendar.ParseDeadline(settings.Deadline); ok {
		patch.Deadline = &deadline
	}
	if _, err := e.events.Update(event.ID, patch); err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to apply event settings")
	}

	if event, err = e.events.GetByID(event.ID); err != nil || event == nil {
		return err
	}

	logger.Info().Str("title", event.Title).Str("external_id", event.ExternalID).Msg("New event created")
	e.dispatcher.NotifyNewEvent(event)
	return nil
}

// updateEvent diffs a raw event against its local counterpart and applies
// whatever changed. A time change classifies the event as rescheduled and
// takes precedence over content edits for notification purposes.
func (e *Engine) updateEvent(local *storage.Event, r calendar.RawEvent) error {
	if r.Cancelled() {
		return e.cancelEvent(local)
	}

	// Cancelled is terminal: no content updates once cancelled.
	if local.Status == storage.StatusCancelled {
		return nil
	}

	var patch storage.EventPatch
	timeChanged := false

	if r.Summary != "" && r.Summary != local.Title {
		title := r.Summary
		patch.Title = &title
	}
	if r.Description != local.Description {
		description := r.Description
		patch.Description = &description
	}

	// Instants are compared in UTC; comparing raw strings would
	// false-positive on equivalent timestamps in different formats.
	if start, ok := calendar.ParseTime(r.Start); ok && !start.Equal(local.StartTime.UTC()) {
		patch.StartTime = &start
		timeChanged = true
	}
	if end, ok := calendar.ParseTime(r.End); ok && !end.Equal(local.EndTime.UTC()) {
		patch.EndTime = &end
		timeChanged = true
	}

	if r.Location != local.Location {
		location := r.Location
		patch.Location = &location
	}

	if patch.Title == nil && patch.Description == nil && patch.Location == nil &&
		patch.StartTime == nil && patch.EndTime == nil {
		return nil
	}

	if _, err := e.events.Update(local.ID, patch); err != nil {
		return err
	}

	updated, err := e.events.GetByID(local.ID)
	if err != nil || updated == nil {
		return err
	}

	if timeChanged {
		logger.Info().Str("title", updated.Title).Msg("Event rescheduled")
		e.dispatcher.NotifyEventPostponed(updated)
	} else {
		logger.Info().Str("title", updated.Title).Msg("Event content updated")
	}
	return nil
}

// cancelEvent transitions an event to cancelled and notifies the going and
// thinking cohorts. Idempotent: an already cancelled event is left alone.
func (e *Engine) cancelEvent(local *storage.Event) error {
	if local.Status == storage.StatusCancelled {
		return nil
	}

	status := storage.StatusCancelled
	if _, err := e.events.Update(local.ID, storage.EventPatch{Status: &status}); err != nil {
		return err
	}

	logger.Info().Str("title", local.Title).Str("external_id", local.ExternalID).Msg("Event cancelled")
	e.dispatcher.NotifyEventCancelled(local)
	return nil
}

// reminderSweep fires repeat reminders for active events. A reminder is due
// when the event has reminder intervals configured and either no reminder
// was ever sent or the poll interval has elapsed since the last one.
func (e *Engine) reminderSweep() {
	active, err := e.events.ListActive()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list active events for reminder sweep")
		return
	}

	for i := range active {
		event := &active[i]
		due, err := e.reminderDue(event)
		if err != nil {
			logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to evaluate reminder")
			continue
		}
		if due {
			e.dispatcher.NotifyEventReminder(event)
		}
	}
}

func (e *Engine) reminderDue(event *storage.Event) (bool, error) {
	if len(event.ReminderIntervalList()) == 0 {
		return false, nil
	}

	last, err := e.receipts.LastReminder(event.ID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}

	pollInterval := time.Duration(event.PollInterval) * time.Hour
	return e.now().Sub(last.SentAt) >= pollInterval, nil
}

// Package calendar provides access to the external Google Calendar source.
package calendar

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/statrsq/events-bot/pkg/logger"
)

// RawEvent is a calendar event as returned by the external provider, before
// any local interpretation.
type RawEvent struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Status      string // provider lifecycle status, "cancelled" marks removal
	Start       DateTime
	End         DateTime
}

// Cancelled reports whether the provider marked the event as removed.
func (e RawEvent) Cancelled() bool {
	return e.Status == "cancelled"
}

// Client fetches events from a single Google calendar.
type Client struct {
	service    *calendar.Service
	calendarID string
	windowDays int
}

// NewClient creates a calendar client authenticated with a service account
// credentials file.
func NewClient(ctx context.Context, credentialsFile, calendarID string, windowDays int) (*Client, error) {
	service, err := calendar.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(calendar.CalendarReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if windowDays <= 0 {
		windowDays = 30
	}

	return &Client{
		service:    service,
		calendarID: calendarID,
		windowDays: windowDays,
	}, nil
}

// Events returns events intersecting the window [now, now+windowDays].
// Deleted entries are included so cancellation can be detected.
func (c *Client) Events(ctx context.Context) ([]RawEvent, error) {
	now := time.Now().UTC()
	windowEnd := now.AddDate(0, 0, c.windowDays)

	result, err := c.service.Events.List(c.calendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(windowEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	events := make([]RawEvent, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, fromAPIEvent(item))
	}

	logger.Debug().Int("count", len(events)).Str("calendar", c.calendarID).Msg("Fetched calendar events")
	return events, nil
}

func fromAPIEvent(item *calendar.Event) RawEvent {
	ev := RawEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      item.Status,
	}
	if item.Start != nil {
		ev.Start = DateTime{DateTime: item.Start.DateTime, Date: item.Start.Date}
	}
	if item.End != nil {
		ev.End = DateTime{DateTime: item.End.DateTime, Date: item.End.Date}
	}
	return ev
}

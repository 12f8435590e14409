package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"tavola/internal/adapters/observability"
	"tavola/internal/domain"
)

const pageSize = 250

// Calendar reads and writes booking events on one Google calendar.
type Calendar struct {
	svc *calendar.Service
	id  string
	loc *time.Location
}

// New authenticates with a service account key (raw JSON).
func New(ctx context.Context, calendarID, credJSON string, loc *time.Location) (*Calendar, error) {
	if calendarID == "" || credJSON == "" {
		return nil, domain.ErrNotConfigured
	}
	return NewWithOptions(ctx, calendarID, loc,
		option.WithCredentialsJSON([]byte(credJSON)),
		option.WithScopes(calendar.CalendarEventsScope),
	)
}

func NewWithOptions(ctx context.Context, calendarID string, loc *time.Location, opts ...option.ClientOption) (*Calendar, error) {
	if loc == nil {
		loc = time.UTC
	}
	opts = append(opts, option.WithUserAgent("tavola/1.0"))
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &Calendar{svc: svc, id: calendarID, loc: loc}, nil
}

// ListEvents returns the single (expanded) events overlapping w, ordered by start.
func (c *Calendar) ListEvents(ctx context.Context, w domain.TimeWindow) ([]domain.CalendarEvent, error) {
	var out []domain.CalendarEvent
	page := ""
	for {
		call := c.svc.Events.List(c.id).
			TimeMin(w.StartRFC3339()).
			TimeMax(w.EndRFC3339()).
			SingleEvents(true).
			OrderBy("startTime").
			TimeZone(c.loc.String()).
			MaxResults(pageSize).
			Context(ctx)
		if page != "" {
			call = call.PageToken(page)
		}

		start := time.Now()
		res, err := call.Do()
		observability.ObserveExternal("gcal", "events.list", statusOf(err), time.Since(start))
		if err != nil {
			return nil, err
		}
		for _, it := range res.Items {
			if it.Status == "cancelled" {
				continue
			}
			out = append(out, c.fromAPI(it))
		}
		if res.NextPageToken == "" {
			return out, nil
		}
		page = res.NextPageToken
	}
}

func (c *Calendar) InsertEvent(ctx context.Context, ev domain.CalendarEvent) (string, error) {
	tz := ev.TimeZone
	if tz == "" {
		tz = c.loc.String()
	}
	body := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: tz},
	}

	start := time.Now()
	res, err := c.svc.Events.Insert(c.id, body).Context(ctx).Do()
	observability.ObserveExternal("gcal", "events.insert", statusOf(err), time.Since(start))
	if err != nil {
		return "", err
	}
	return res.Id, nil
}

func (c *Calendar) fromAPI(it *calendar.Event) domain.CalendarEvent {
	ev := domain.CalendarEvent{ID: it.Id, Summary: it.Summary, Description: it.Description}
	if it.Start != nil {
		ev.Start, ev.TimeZone = c.parseTime(it.Start)
	}
	if it.End != nil {
		ev.End, _ = c.parseTime(it.End)
	}
	return ev
}

// parseTime handles timed events and all-day events (date only).
func (c *Calendar) parseTime(dt *calendar.EventDateTime) (time.Time, string) {
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t, dt.TimeZone
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, c.loc); err == nil {
			return t, dt.TimeZone
		}
	}
	return time.Time{}, dt.TimeZone
}

func statusOf(err error) int {
	if err == nil {
		return 200
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

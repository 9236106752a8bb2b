package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
)

// Source adapts the calendar repository to the briefing and alert consumers
type Source struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewSource creates a calendar source. Day boundaries are computed in loc.
func NewSource(repo Repository, loc *time.Location) *Source {
	if loc == nil {
		loc = time.Local
	}
	return &Source{repo: repo, loc: loc, now: time.Now}
}

// EventsForDay returns the events of the day daysAhead days from today
func (s *Source) EventsForDay(ctx context.Context, daysAhead int) ([]briefing.Event, error) {
	start, end := dayBounds(s.now().In(s.loc), daysAhead)
	return s.EventsInRange(ctx, start, end)
}

// EventsInRange returns the events overlapping [start, end)
func (s *Source) EventsInRange(ctx context.Context, start, end time.Time) ([]briefing.Event, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("calendar: empty range %s - %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	rows, err := s.repo.EventsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}
	events := make([]briefing.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, s.toEvent(row))
	}
	return events, nil
}

// toEvent maps a stored row. All-day events carry no machine start, so the
// alert scheduler skips them.
func (s *Source) toEvent(row CalendarEvent) briefing.Event {
	e := briefing.Event{
		ID:       row.ID.String(),
		Title:    row.Title,
		Start:    row.DisplayStart(s.loc),
		Location: row.Location,
	}
	if row.ExternalID != "" {
		e.ID = row.ExternalID
	}
	if !row.IsAllDay {
		start := row.StartTime.In(s.loc)
		e.StartRaw = &start
	}
	return e
}

func dayBounds(now time.Time, daysAhead int) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d+daysAhead, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// Package calendar selects and formats the market events shown alongside a
// newsletter digest.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NewsletterDigest/internal/model"
)

const headerLayout = "Monday (1/2)"

// EventSource is the part of the recorder the calendar reads from.
type EventSource interface {
	EventsBetween(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error)
}

// Window returns the inclusive date range of events relevant to a newsletter
// published on date: the remaining weekdays of its week, or the whole next
// week when it is published on a Friday or over the weekend.
func Window(date time.Time) (from, to time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	switch day.Weekday() {
	case time.Friday:
		from = day.AddDate(0, 0, 3)
	case time.Saturday:
		from = day.AddDate(0, 0, 2)
	case time.Sunday:
		from = day.AddDate(0, 0, 1)
	default:
		from = day.AddDate(0, 0, 1)
		return from, day.AddDate(0, 0, int(time.Friday-day.Weekday()))
	}
	return from, from.AddDate(0, 0, 4)
}

// Format groups events by date. Each group starts with a header such as
// "Wednesday (2/12)" followed by a blank line and one "time - event" line per
// event; groups are separated by a blank line.
func Format(events []model.CalendarEvent) string {
	var (
		blocks []string
		b      strings.Builder
		last   time.Time
	)
	for i, evt := range events {
		if i == 0 || !sameDay(evt.Date, last) {
			if b.Len() > 0 {
				blocks = append(blocks, b.String())
				b.Reset()
			}
			b.WriteString(evt.Date.Format(headerLayout))
			b.WriteString("\n")
			last = evt.Date
		}
		b.WriteString("\n")
		if evt.Time != "" {
			fmt.Fprintf(&b, "%s - %s", evt.Time, evt.Event)
		} else {
			b.WriteString(evt.Event)
		}
	}
	if b.Len() > 0 {
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// Upcoming loads and formats the events in the window for date.
func Upcoming(ctx context.Context, src EventSource, date time.Time) (string, error) {
	from, to := Window(date)
	events, err := src.EventsBetween(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("load events %s to %s: %w",
			from.Format("2006-01-02"), to.Format("2006-01-02"), err)
	}
	return Format(events), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

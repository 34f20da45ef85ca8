package calendar

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"NewsletterDigest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

type memoryCalendar struct {
	events []model.CalendarEvent
	err    error
}

func (m *memoryCalendar) EventsBetween(_ context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.CalendarEvent
	for _, e := range m.events {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryCalendar) AddEvents(_ context.Context, events []model.CalendarEvent) error {
	m.events = append(m.events, events...)
	return nil
}

func TestWindow(t *testing.T) {
	// October 2026: Mon 12 .. Fri 16, Sat 17, Sun 18, Mon 19 .. Fri 23.
	tests := []struct {
		name     string
		date     time.Time
		from, to time.Time
	}{
		{"monday", day(12), day(13), day(16)},
		{"wednesday", day(14), day(15), day(16)},
		{"thursday", day(15), day(16), day(16)},
		{"friday rolls to next week", day(16), day(19), day(23)},
		{"saturday", day(17), day(19), day(23)},
		{"sunday", day(18), day(19), day(23)},
		{"time of day ignored", time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC), day(15), day(16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := Window(tt.date)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestFormat(t *testing.T) {
	got := Format([]model.CalendarEvent{
		{Date: day(19), Time: "8:30 AM", Event: "CPI"},
		{Date: day(19), Time: "1:00 PM", Event: "10Y Auction"},
		{Date: day(21), Event: "Fed Beige Book"},
	})
	want := "Monday (10/19)\n\n8:30 AM - CPI\n1:00 PM - 10Y Auction\n\nWednesday (10/21)\n\nFed Beige Book"
	assert.Equal(t, want, got)
	assert.Equal(t, "", Format(nil))
}

func TestUpcoming(t *testing.T) {
	src := &memoryCalendar{events: []model.CalendarEvent{
		{Date: day(15), Time: "8:30 AM", Event: "Retail Sales"},
		{Date: day(19), Time: "8:30 AM", Event: "CPI"},
		{Date: day(26), Time: "2:00 PM", Event: "FOMC Minutes"},
	}}

	got, err := Upcoming(context.Background(), src, day(16))
	require.NoError(t, err)
	assert.Equal(t, "Monday (10/19)\n\n8:30 AM - CPI", got)

	_, err = Upcoming(context.Background(), &memoryCalendar{err: errors.New("db closed")}, day(16))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	input := "Date,Time,Event\n2026-10-19,8:30 AM,CPI\n\n10/21/2026,,\"Beige Book, Fed\"\n"
	events, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, day(19), events[0].Date)
	assert.Equal(t, "8:30 AM", events[0].Time)
	assert.Equal(t, day(21), events[1].Date)
	assert.Equal(t, "Beige Book, Fed", events[1].Event)

	_, err = Load(strings.NewReader("date,event\nsometime,CPI\n"))
	assert.Error(t, err)
	_, err = Load(strings.NewReader("when,what\n"))
	assert.Error(t, err)
}

func TestImporter_ImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,time,event\n2026-10-19,8:30 AM,CPI\n"), 0644))

	store := &memoryCalendar{}
	n, err := NewImporter(store, arbor.NewLogger()).ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "CPI", store.events[0].Event)
}

package model

import "time"

// CalendarEvent is a scheduled market event (economic release, auction, speech).
type CalendarEvent struct {
	Date  time.Time // calendar date, time of day ignored
	Time  string    // display time as written in the source, e.g. "8:30 AM"
	Event string
}

package digest

import (
	"fmt"
	"time"

	_ "time/tzdata"
)

// ReferenceTimezone is the market clock newsletters are dated against.
const ReferenceTimezone = "America/New_York"

const (
	clockLayout = "3:04 PM MST"
	dateLayout  = "Monday, January 2, 2006"
)

// NextTradingDay returns the day after t, moved to Monday when it falls on a weekend.
func NextTradingDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	switch next.Weekday() {
	case time.Saturday:
		next = next.AddDate(0, 0, 2)
	case time.Sunday:
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TimingDetail states when the digest was generated and which session it covers.
func TimingDetail(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return fmt.Sprintf("Generated at %s on %s. Levels apply to the next trading session on %s.",
		local.Format(clockLayout), local.Format(dateLayout), NextTradingDay(local).Format(dateLayout))
}

package domain

import (
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for check-in and check-out dates.
	DateLayout = "2006-01-02"

	StayNights = 7
	// CheckInWeekday is the only weekday a public booking may start on.
	CheckInWeekday = time.Sunday
)

// Rooms is the fixed room universe.
var Rooms = []int{1, 2, 3, 4, 5}

func ValidRoom(n int) bool { return n >= Rooms[0] && n <= Rooms[len(Rooms)-1] }

// Stay is the half-open interval [CheckIn, CheckOut) of dates at UTC midnight.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStay returns the week-long stay starting on checkIn.
func NewStay(checkIn time.Time) Stay {
	in := DateOnly(checkIn)
	return Stay{CheckIn: in, CheckOut: in.AddDate(0, 0, StayNights)}
}

// Overlaps reports whether two half-open stays intersect: a < d && c < b.
func (s Stay) Overlaps(o Stay) bool {
	return s.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(s.CheckOut)
}

// ParseDate parses a YYYY-MM-DD date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, Validation("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// DateOnly strips the time component, keeping the calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

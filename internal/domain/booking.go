package domain

import (
	"strconv"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// BlockingStatuses count toward the no-double-booking invariant.
var BlockingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

func (s BookingStatus) Blocking() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// CanTransition reports whether an admin may move a booking from s to next.
// pending -> confirmed -> completed; pending|confirmed -> cancelled.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	}
	return false
}

type Booking struct {
	ID            int64         `json:"id"`
	Reference     string        `json:"bookingId"`
	PackageID     int64         `json:"packageId"`
	RoomNumber    int           `json:"roomNumber"`
	CustomerName  string        `json:"customerName"`
	CustomerEmail string        `json:"customerEmail"`
	CustomerPhone string        `json:"customerPhone"`
	CheckIn       time.Time     `json:"checkInDate"`
	CheckOut      time.Time     `json:"checkOutDate"`
	TotalPrice    float64       `json:"totalPrice"`
	Status        BookingStatus `json:"status"`
	AdminNotes    string        `json:"adminNotes"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (b Booking) Stay() Stay { return Stay{CheckIn: b.CheckIn, CheckOut: b.CheckOut} }

// BookingRef identifies a booking either by numeric id or by its human reference.
type BookingRef struct {
	ID        int64
	Reference string
}

// ParseBookingRef accepts "42" or "BK-20240114-1A2B3C4D".
func ParseBookingRef(s string) (BookingRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BookingRef{}, Validation("booking id is required")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 {
			return BookingRef{}, Validation("booking id must be positive")
		}
		return BookingRef{ID: id}, nil
	}
	return BookingRef{Reference: strings.ToUpper(s)}, nil
}

func (r BookingRef) String() string {
	if r.Reference != "" {
		return r.Reference
	}
	return strconv.FormatInt(r.ID, 10)
}

// Matches reports whether b is the booking r points at.
func (r BookingRef) Matches(b Booking) bool {
	if r.Reference != "" {
		return strings.EqualFold(b.Reference, r.Reference)
	}
	return b.ID == r.ID
}

type BookingFilter struct {
	PackageID *int64
	// Today bounds "non-expired" when PackageID is set.
	Today time.Time
}

// BookingSlot is the public projection of a booking: enough to render occupancy.
type BookingSlot struct {
	RoomNumber int           `json:"roomNumber"`
	CheckIn    time.Time     `json:"checkInDate"`
	CheckOut   time.Time     `json:"checkOutDate"`
	Status     BookingStatus `json:"status"`
}

func (b Booking) Slot() BookingSlot {
	return BookingSlot{RoomNumber: b.RoomNumber, CheckIn: b.CheckIn, CheckOut: b.CheckOut, Status: b.Status}
}

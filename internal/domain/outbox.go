package domain

import "time"

// OutboxIntent is a notification waiting to be delivered. It is written in the same
// transaction as the booking change that caused it.
type OutboxIntent struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	BookingID    string           `json:"bookingId,omitempty"`
	Priority     Priority         `json:"priority"`
	Attempts     int              `json:"attempts"`
	LastError    string           `json:"lastError,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	DispatchedAt *time.Time       `json:"dispatchedAt,omitempty"`
	FailedAt     *time.Time       `json:"failedAt,omitempty"`
}

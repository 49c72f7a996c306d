package domain

import "time"

type NotificationType string

const (
	NotificationBookingCreated   NotificationType = "booking_created"
	NotificationBookingUpdated   NotificationType = "booking_updated"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationSystem           NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationBookingCreated, NotificationBookingUpdated, NotificationBookingCancelled, NotificationSystem:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	BookingID string           `json:"bookingId,omitempty"`
	IsRead    bool             `json:"isRead"`
	Priority  Priority         `json:"priority"`
	DedupeKey string           `json:"-"`
	CreatedAt time.Time        `json:"createdAt"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
}

type NotificationQuery struct {
	Limit      int
	UnreadOnly bool
}

package app

import (
	"context"
	"time"

	"hotel_backoffice/internal/domain"
)

type Availability struct {
	CheckInDate    string `json:"checkInDate"`
	CheckOutDate   string `json:"checkOutDate"`
	AvailableRooms []int  `json:"availableRooms"`
	BookedRooms    []int  `json:"bookedRooms"`
}

type AvailabilityService struct {
	bookings domain.BookingRepository
	catalog  *CatalogService
}

func NewAvailabilityService(b domain.BookingRepository, c *CatalogService) *AvailabilityService {
	return &AvailabilityService{bookings: b, catalog: c}
}

// CheckAvailability lists free and taken rooms for the week starting on checkInDate.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, checkInDate string, packageID int64) (Availability, error) {
	in, err := domain.ParseDate(checkInDate)
	if err != nil {
		return Availability{}, err
	}
	if _, err := s.catalog.GetActive(ctx, packageID); err != nil {
		return Availability{}, err
	}
	stay := domain.NewStay(in)
	booked, err := s.bookings.BookedRooms(ctx, stay)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		CheckInDate:    stay.CheckIn.Format(domain.DateLayout),
		CheckOutDate:   stay.CheckOut.Format(domain.DateLayout),
		AvailableRooms: freeRooms(booked),
		BookedRooms:    normalizeRooms(booked),
	}, nil
}

func (s *AvailabilityService) HasOverlap(ctx context.Context, room int, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	if !domain.ValidRoom(room) {
		return false, domain.Validation("roomNumber must be between 1 and 5")
	}
	stay := domain.Stay{CheckIn: domain.DateOnly(checkIn), CheckOut: domain.DateOnly(checkOut)}
	if !stay.CheckIn.Before(stay.CheckOut) {
		return false, domain.Validation("checkOutDate must be after checkInDate")
	}
	return s.bookings.HasOverlap(ctx, room, stay, excludeBookingID)
}

func freeRooms(booked []int) []int {
	taken := make(map[int]bool, len(booked))
	for _, r := range booked {
		taken[r] = true
	}
	out := make([]int, 0, len(domain.Rooms))
	for _, r := range domain.Rooms {
		if !taken[r] {
			out = append(out, r)
		}
	}
	return out
}

// normalizeRooms keeps only known rooms, in universe order, without duplicates.
func normalizeRooms(booked []int) []int {
	taken := make(map[int]bool, len(booked))
	for _, r := range booked {
		taken[r] = true
	}
	out := make([]int, 0, len(booked))
	for _, r := range domain.Rooms {
		if taken[r] {
			out = append(out, r)
		}
	}
	return out
}

// Package memory is an in-process implementation of the storage ports. It backs the
// test suites and STORAGE=memory local runs; a single mutex makes every
// check-then-write sequence atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hotel_backoffice/internal/domain"
)

type Store struct {
	mu sync.Mutex

	now func() time.Time

	packages      map[int64]domain.Package
	bookings      map[int64]domain.Booking
	admins        map[int64]domain.Admin
	notifications map[int64]domain.Notification
	outbox        []domain.OutboxIntent

	nextPackage, nextBooking, nextAdmin, nextNotification int64
}

func New() *Store {
	return &Store{
		now:           time.Now,
		packages:      map[int64]domain.Package{},
		bookings:      map[int64]domain.Booking{},
		admins:        map[int64]domain.Admin{},
		notifications: map[int64]domain.Notification{},
	}
}

// WithClock overrides the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ---- packages ----

func (s *Store) CreatePackage(ctx context.Context, p domain.Package) (domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPackage++
	p.ID = s.nextPackage
	p.Features = append([]string(nil), p.Features...)
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.packages[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePackage(ctx context.Context, p domain.Package) (domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.packages[p.ID]
	if !ok {
		return domain.Package{}, domain.NotFound("package not found")
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = s.now().UTC()
	p.Features = append([]string(nil), p.Features...)
	s.packages[p.ID] = p
	return p, nil
}

func (s *Store) DeactivatePackage(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return domain.NotFound("package not found")
	}
	p.IsActive = false
	p.UpdatedAt = at
	s.packages[id] = p
	return nil
}

func (s *Store) GetPackage(ctx context.Context, id int64) (domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[id]
	if !ok {
		return domain.Package{}, domain.NotFound("package not found")
	}
	return p, nil
}

func (s *Store) ListActivePackages(ctx context.Context) ([]domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Package, 0, len(s.packages))
	for _, p := range s.packages {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- bookings ----

func (s *Store) InsertBooking(ctx context.Context, b domain.Booking, intent domain.OutboxIntent) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapLocked(b.RoomNumber, b.Stay(), 0) {
		return domain.Booking{}, domain.Conflict("room is already booked for the selected dates")
	}
	for _, existing := range s.bookings {
		if existing.Reference == b.Reference {
			return domain.Booking{}, domain.Conflict("booking reference already exists")
		}
	}
	s.nextBooking++
	b.ID = s.nextBooking
	s.bookings[b.ID] = b
	s.outbox = append(s.outbox, intent)
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, ref domain.BookingRef) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.findLocked(ref)
	if !ok {
		return domain.Booking{}, domain.NotFound("booking not found")
	}
	return b, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b domain.Booking, expected domain.BookingStatus, intent *domain.OutboxIntent) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bookings[b.ID]
	if !ok {
		return domain.Booking{}, domain.NotFound("booking not found")
	}
	if cur.Status != expected {
		return domain.Booking{}, domain.Conflict("booking was modified concurrently")
	}
	cur.Status = b.Status
	cur.AdminNotes = b.AdminNotes
	cur.UpdatedAt = b.UpdatedAt
	s.bookings[cur.ID] = cur
	if intent != nil {
		s.outbox = append(s.outbox, *intent)
	}
	return cur, nil
}

func (s *Store) DeleteBooking(ctx context.Context, id int64, intent domain.OutboxIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return domain.NotFound("booking not found")
	}
	delete(s.bookings, id)
	s.outbox = append(s.outbox, intent)
	return nil
}

func (s *Store) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if f.PackageID != nil {
			if b.PackageID != *f.PackageID || !b.Status.Blocking() || !b.CheckOut.After(f.Today) {
				continue
			}
		}
		out = append(out, b)
	}
	if f.PackageID != nil {
		sort.Slice(out, func(i, j int) bool {
			if out[i].CheckIn.Equal(out[j].CheckIn) {
				return out[i].RoomNumber < out[j].RoomNumber
			}
			return out[i].CheckIn.Before(out[j].CheckIn)
		})
		return out, nil
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) BookedRooms(ctx context.Context, stay domain.Stay) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, room := range domain.Rooms {
		if s.overlapLocked(room, stay, 0) {
			out = append(out, room)
		}
	}
	return out, nil
}

func (s *Store) HasOverlap(ctx context.Context, room int, stay domain.Stay, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlapLocked(room, stay, excludeID), nil
}

func (s *Store) ListBlockingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.Status.Blocking() && !b.CheckIn.Before(from) && b.CheckIn.Before(to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) overlapLocked(room int, stay domain.Stay, excludeID int64) bool {
	for _, b := range s.bookings {
		if b.ID == excludeID || b.RoomNumber != room || !b.Status.Blocking() {
			continue
		}
		if b.Stay().Overlaps(stay) {
			return true
		}
	}
	return false
}

func (s *Store) findLocked(ref domain.BookingRef) (domain.Booking, bool) {
	if ref.Reference == "" {
		b, ok := s.bookings[ref.ID]
		return b, ok
	}
	for _, b := range s.bookings {
		if ref.Matches(b) {
			return b, true
		}
	}
	return domain.Booking{}, false
}

// ---- admins ----

func (s *Store) CreateAdmin(ctx context.Context, a domain.Admin) (domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTakenLocked(a.Email, 0) {
		return domain.Admin{}, domain.Conflict("an admin with this email already exists")
	}
	s.nextAdmin++
	a.ID = s.nextAdmin
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.admins[a.ID] = a
	return a, nil
}

func (s *Store) GetAdmin(ctx context.Context, id int64) (domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return domain.Admin{}, domain.NotFound("admin not found")
	}
	return a, nil
}

func (s *Store) GetActiveAdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.IsActive && strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return domain.Admin{}, domain.NotFound("admin not found")
}

func (s *Store) ListActiveAdmins(ctx context.Context) ([]domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Admin
	for _, a := range s.admins {
		if a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateAdmin(ctx context.Context, current, next domain.Admin) (domain.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.admins[current.ID]
	if !ok {
		return domain.Admin{}, domain.NotFound("admin not found")
	}
	if stored.Email != current.Email || stored.Role != current.Role || stored.IsActive != current.IsActive {
		return domain.Admin{}, domain.Conflict("admin was modified concurrently")
	}
	if s.emailTakenLocked(next.Email, current.ID) {
		return domain.Admin{}, domain.Conflict("an admin with this email already exists")
	}
	if domain.DropsSuperAdmin(stored, next) && s.activeSuperAdminsLocked() <= 1 {
		return domain.Admin{}, domain.ErrLastSuperAdmin
	}
	stored.Email = next.Email
	stored.Name = next.Name
	stored.Role = next.Role
	stored.IsActive = next.IsActive
	stored.UpdatedAt = s.now().UTC()
	s.admins[stored.ID] = stored
	return stored, nil
}

func (s *Store) CountActiveSuperAdmins(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSuperAdminsLocked(), nil
}

func (s *Store) activeSuperAdminsLocked() int {
	n := 0
	for _, a := range s.admins {
		if a.ActiveSuperAdmin() {
			n++
		}
	}
	return n
}

// emailTakenLocked treats inactive accounts as holders of their email too, matching
// the unique index in the relational schema.
func (s *Store) emailTakenLocked(email string, exceptID int64) bool {
	for _, a := range s.admins {
		if a.ID != exceptID && strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

// ---- notifications ----

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DedupeKey != "" {
		for _, existing := range s.notifications {
			if existing.DedupeKey == n.DedupeKey {
				return existing, false, nil
			}
		}
	}
	s.nextNotification++
	n.ID = s.nextNotification
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	s.notifications[n.ID] = n
	return n, true, nil
}

func (s *Store) ListNotifications(ctx context.Context, q domain.NotificationQuery) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if q.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id int64, at time.Time) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return domain.Notification{}, domain.NotFound("notification not found")
	}
	if !n.IsRead {
		n.IsRead = true
		readAt := at
		n.ReadAt = &readAt
		s.notifications[id] = n
	}
	return n, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for id, n := range s.notifications {
		if n.IsRead {
			continue
		}
		n.IsRead = true
		readAt := at
		n.ReadAt = &readAt
		s.notifications[id] = n
		changed++
	}
	return changed, nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, x := range s.notifications {
		if !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteNotification(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return domain.NotFound("notification not found")
	}
	delete(s.notifications, id)
	return nil
}

func (s *Store) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time, onlyRead bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, n := range s.notifications {
		if !n.CreatedAt.Before(cutoff) || (onlyRead && !n.IsRead) {
			continue
		}
		delete(s.notifications, id)
		removed++
	}
	return removed, nil
}

// ---- outbox ----

func (s *Store) PendingIntents(ctx context.Context, limit int) ([]domain.OutboxIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OutboxIntent
	for _, in := range s.outbox {
		if in.DispatchedAt != nil || in.FailedAt != nil {
			continue
		}
		out = append(out, in)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkIntentDispatched(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			t := at
			s.outbox[i].DispatchedAt = &t
			return nil
		}
	}
	return domain.NotFound("outbox intent not found")
}

func (s *Store) MarkIntentFailed(ctx context.Context, id string, reason string, dead bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID != id {
			continue
		}
		s.outbox[i].Attempts++
		s.outbox[i].LastError = reason
		if dead {
			t := at
			s.outbox[i].FailedAt = &t
		}
		return nil
	}
	return domain.NotFound("outbox intent not found")
}

func (s *Store) PurgeSettledIntents(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.outbox[:0]
	var n int64
	for _, in := range s.outbox {
		settled := (in.DispatchedAt != nil && in.DispatchedAt.Before(cutoff)) ||
			(in.FailedAt != nil && in.FailedAt.Before(cutoff))
		if settled {
			n++
			continue
		}
		kept = append(kept, in)
	}
	s.outbox = kept
	return n, nil
}

// Outbox returns a copy of every stored intent, dispatched or not.
func (s *Store) Outbox() []domain.OutboxIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxIntent(nil), s.outbox...)
}

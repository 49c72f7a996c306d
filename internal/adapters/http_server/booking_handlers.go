package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hotel_backoffice/internal/adapters/observability"
	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
)

type createBookingResponse struct {
	Booking   domain.Booking `json:"booking"`
	BookingID string         `json:"bookingId"`
}

type deleteBookingResponse struct {
	Deleted bool   `json:"deleted"`
	Ref     string `json:"ref"`
}

func errRequired(name string) error { return domain.Validation("%s is required", name) }

func bookingRef(r *http.Request) (domain.BookingRef, error) {
	return domain.ParseBookingRef(chi.URLParam(r, "ref"))
}

// listBookings serves two audiences: anonymous callers filtering by package get
// occupancy slots only; admins get full bookings, filtered or not.
func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	pkg, err := queryPositiveID(r, "packageId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	_, authed := IdentityFrom(r.Context())
	if !authed && pkg == nil {
		writeError(w, r, domain.Unauthorized("authentication required"))
		return
	}
	list, err := h.Bookings.List(r.Context(), pkg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if authed {
		writeJSON(w, http.StatusOK, list)
		return
	}
	slots := make([]domain.BookingSlot, 0, len(list))
	for _, b := range list {
		slots = append(slots, b.Slot())
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var in app.CreateBookingInput
	if err := decodeJSON(w, r, &in); err != nil {
		observability.ObserveBooking("create", err)
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.Create(r.Context(), in)
	observability.ObserveBooking("create", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createBookingResponse{Booking: b, BookingID: b.Reference})
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	ref, err := bookingRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.Get(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	ref, err := bookingRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.UpdateBookingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Bookings.Update(r.Context(), ref, in)
	observability.ObserveBooking("update", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	ref, err := bookingRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = h.Bookings.Delete(r.Context(), ref)
	observability.ObserveBooking("delete", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteBookingResponse{Deleted: true, Ref: chi.URLParam(r, "ref")})
}

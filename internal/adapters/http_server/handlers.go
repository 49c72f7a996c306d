package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_backoffice/internal/adapters/session"
	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Catalog       *app.CatalogService
	Availability  *app.AvailabilityService
	Bookings      *app.BookingService
	Notifications *app.NotificationService
	Admins        *app.AdminDirectory
	Sessions      *session.Manager

	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
	// Optional per-IP limiters for login and public booking creation.
	LoginLimiter   *IPLimiter
	BookingLimiter *IPLimiter
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(h.Sessions, session.CookieName))

		r.With(RateLimit(h.LoginLimiter)).Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)
		r.With(RequireAdmin).Get("/auth/me", h.me)

		r.Get("/packages", h.listPackages)
		r.With(RequireAdmin).Post("/packages", h.createPackage)
		r.With(RequireAdmin).Put("/packages/{id}", h.updatePackage)
		r.With(RequireAdmin).Delete("/packages/{id}", h.deletePackage)

		r.Get("/availability", h.checkAvailability)

		r.Get("/bookings", h.listBookings)
		r.With(RateLimit(h.BookingLimiter)).Post("/bookings", h.createBooking)
		r.With(RequireAdmin).Get("/bookings/{ref}", h.getBooking)
		r.With(RequireAdmin).Put("/bookings/{ref}", h.updateBooking)
		r.With(RequireAdmin).Delete("/bookings/{ref}", h.deleteBooking)

		r.With(RequireAdmin).Get("/admins", h.listAdmins)
		r.With(RequireSuperAdmin).Post("/admins", h.createAdmin)
		r.With(RequireSuperAdmin).Put("/admins/{id}", h.updateAdmin)
		r.With(RequireSuperAdmin).Delete("/admins/{id}", h.deleteAdmin)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/notifications", h.listNotifications)
			r.Get("/notifications/count", h.countNotifications)
			r.Post("/notifications", h.createNotification)
			r.Put("/notifications", h.updateNotifications)
			r.Delete("/notifications", h.bulkDeleteNotifications)
			r.Delete("/notifications/{id}", h.deleteNotification)
		})
	})
}

// ---- responses ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeProblem(w http.ResponseWriter, status int, title, code, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Code: code, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as problem+json. Internal errors are logged and never echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	detail := domain.Message(err)
	if kind == domain.KindInternal {
		log.Error().Err(err).Str("route", routePattern(r)).Str("method", r.Method).Msg("request failed")
		detail = "an unexpected error occurred"
	}
	writeProblem(w, status, http.StatusText(status), string(kind), detail)
}

// ---- requests ----

// decodeJSON reads exactly one JSON object and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		var ute *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return domain.Validation("request body is required")
		case errors.As(err, &mbe):
			return domain.Validation("request body too large")
		case errors.As(err, &ute):
			return domain.Validation("%s has the wrong type", ute.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return domain.Validation("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return domain.Validation("malformed JSON body")
		}
	}
	if dec.More() {
		return domain.Validation("request body must contain a single JSON object")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("%s must be a positive integer", name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, domain.Validation("%s must be an integer", name)
	}
	return n, true, nil
}

func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.Validation("%s must be true or false", name)
	}
	return b, nil
}

func queryPositiveID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.Validation("%s must be a positive integer", name)
	}
	return &id, nil
}

func actor(r *http.Request) domain.Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}

func countBody(key string, n int64) map[string]int64 { return map[string]int64{key: n} }

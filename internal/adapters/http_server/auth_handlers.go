package httpserver

import (
	"net/http"
	"time"

	"hotel_backoffice/internal/adapters/session"
	"hotel_backoffice/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User domain.Identity `json:"user"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Admins.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, id, err := h.Sessions.Issue(a.Identity())
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(token, h.Sessions.TTL()))
	writeJSON(w, http.StatusOK, sessionResponse{User: id})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{User: actor(r)})
}

// sessionCookie builds the session cookie; a negative ttl expires it immediately.
func (h *Handlers) sessionCookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}
	c.MaxAge = int(ttl.Seconds())
	c.Expires = time.Now().Add(ttl)
	return c
}

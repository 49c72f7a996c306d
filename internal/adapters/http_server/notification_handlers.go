package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
)

func (h *Handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, set, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if set && (limit < 1 || limit > app.MaxNotificationLimit) {
		writeError(w, r, domain.Validation("limit must be between 1 and %d", app.MaxNotificationLimit))
		return
	}
	unread, err := queryBool(r, "unreadOnly", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Notifications.List(r.Context(), limit, unread)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) countNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.UnreadCount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countBody("count", int64(n)))
}

func (h *Handlers) createNotification(w http.ResponseWriter, r *http.Request) {
	var in app.CreateNotificationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Notifications.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// updateNotifications handles ?action=markRead&id=N and ?action=markAllRead.
func (h *Handlers) updateNotifications(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "markRead":
		id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, domain.Validation("id must be a positive integer"))
			return
		}
		n, err := h.Notifications.MarkRead(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	case "markAllRead":
		n, err := h.Notifications.MarkAllRead(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, countBody("updated", n))
	default:
		writeError(w, r, domain.Validation("action must be markRead or markAllRead"))
	}
}

// bulkDeleteNotifications handles ?olderThanDays=N[&onlyRead=false] and ?scope=read.
func (h *Handlers) bulkDeleteNotifications(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("scope") == "read" {
		n, err := h.Notifications.DeleteRead(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, countBody("deleted", n))
		return
	}
	days, set, err := queryInt(r, "olderThanDays")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !set {
		writeError(w, r, domain.Validation("olderThanDays or scope=read is required"))
		return
	}
	onlyRead, err := queryBool(r, "onlyRead", true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.Notifications.DeleteOlderThan(r.Context(), days, onlyRead)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countBody("deleted", n))
}

func (h *Handlers) deleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Notifications.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

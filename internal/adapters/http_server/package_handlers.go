package httpserver

import (
	"net/http"

	"hotel_backoffice/internal/app"
)

func (h *Handlers) listPackages(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handlers) createPackage(w http.ResponseWriter, r *http.Request) {
	var in app.PackageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) updatePackage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.PackageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deletePackage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("checkInDate")
	if date == "" {
		writeError(w, r, errRequired("checkInDate"))
		return
	}
	pkg, err := queryPositiveID(r, "packageId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if pkg == nil {
		writeError(w, r, errRequired("packageId"))
		return
	}
	a, err := h.Availability.CheckAvailability(r.Context(), date, *pkg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

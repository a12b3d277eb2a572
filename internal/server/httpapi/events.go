package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type cleanupRequest struct {
	ActiveIDs []string `json:"activeIds"`
}

type cleanupResponse struct {
	Removed int `json:"removed"`
}

type refreshResponse struct {
	Events  []models.Event `json:"events"`
	Removed int            `json:"removed"`
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	events, err := h.svc.Sync.LoadEvents(r.Context(), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Sync.DeleteEvent(r.Context(), t, chi.URLParam(r, "eventId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) cleanupEvents(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req cleanupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	removed, err := h.svc.Sync.CleanupDeletedEvents(r.Context(), t, req.ActiveIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cleanupResponse{Removed: removed})
}

func (h *handler) refreshEvents(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	events, removed, err := h.svc.Sync.RefreshEvents(r.Context(), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Events: events, Removed: removed})
}

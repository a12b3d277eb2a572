package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/dmitrijs2005/placeshare/internal/server/services"
)

type createCollectionRequest struct {
	Name     string `json:"name"`
	IconName string `json:"iconName"`
}

type renameRequest struct {
	Name string `json:"name"`
}

// listCollections accepts ?status=active|completed|inactive|any.
func (h *handler) listCollections(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var opts []services.LoadOption
	switch s := r.URL.Query().Get("status"); s {
	case "":
	case "any":
		opts = append(opts, services.WithAnyStatus())
	default:
		status, ok := models.ParseStatus(s)
		if !ok {
			h.fail(w, r, fmt.Errorf("%w: unknown status %q", common.ErrInvalidArgument, s))
			return
		}
		opts = append(opts, services.WithStatus(status))
	}

	res, err := h.svc.Loading.LoadCollections(r.Context(), uid, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) createCollection(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req createCollectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.svc.Collections.Create(r.Context(), uid, req.Name, req.IconName)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// getCollection answers 304 when If-None-Match matches the current ETag.
func (h *handler) getCollection(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.svc.Loading.LoadCollection(r.Context(), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	etag, err := c.ETag()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) renameCollection(w http.ResponseWriter, r *http.Request) {
	t, err := ownTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Collections.Rename(r.Context(), t.OwnerID, t.CollectionID, req.Name); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	t, err := ownTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Collections.Delete(r.Context(), t.OwnerID, t.CollectionID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) completeCollection(w http.ResponseWriter, r *http.Request) {
	t, err := ownTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Collections.Complete(r.Context(), t.OwnerID, t.CollectionID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) reopenCollection(w http.ResponseWriter, r *http.Request) {
	t, err := ownTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Collections.PutBack(r.Context(), t.OwnerID, t.CollectionID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/dmitrijs2005/placeshare/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type visitedRequest struct {
	Visited bool `json:"visited"`
}

type copyRequest struct {
	TargetCollectionID string `json:"targetCollectionId"`
}

type iconRequest struct {
	IconName string `json:"iconName"`
	IconURL  string `json:"iconUrl"`
}

type avatarRequest struct {
	URL string `json:"url"`
}

type uploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (h *handler) addPlace(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var place models.Place
	if err := decodeJSON(w, r, &place); err != nil {
		h.fail(w, r, err)
		return
	}

	added, err := h.svc.Sync.AddPlace(r.Context(), t, place)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (h *handler) deletePlace(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Sync.DeletePlace(r.Context(), t, chi.URLParam(r, "placeId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setVisited(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req visitedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Sync.ToggleVisited(r.Context(), t, chi.URLParam(r, "placeId"), req.Visited); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) copyPlace(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req copyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	place, err := h.svc.Sync.CopyPlace(r.Context(), services.CopyRequest{
		CurrentUserID:      t.CurrentUserID,
		PlaceID:            chi.URLParam(r, "placeId"),
		SourceOwnerID:      t.OwnerID,
		SourceCollectionID: t.CollectionID,
		TargetCollectionID: req.TargetCollectionID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, place)
}

func (h *handler) hearts(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	hearts, err := h.svc.Sync.LoadPlaceHearts(r.Context(), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hearts)
}

// flushHearts takes a map of placeId to the full list of user ids that
// heart it. An empty list clears the entry.
func (h *handler) flushHearts(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var pending map[string][]string
	if err := decodeJSON(w, r, &pending); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Sync.FlushHearts(r.Context(), t, pending); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) updateIcon(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req iconRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Sync.UpdateIcon(r.Context(), t, req.IconName, req.IconURL); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) avatarUploadURL(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	key, url, err := h.svc.Sync.PresignAvatarUpload(r.Context(), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadURLResponse{Key: key, URL: url})
}

func (h *handler) setAvatar(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req avatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Sync.UpdateAvatarThumbnail(r.Context(), t, req.URL); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import "net/http"

type profileRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarURL"`
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.Users.Profile(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) ensureProfile(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.Users.EnsureProfile(r.Context(), uid, req.Name, req.AvatarURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Users.DeleteAccount(r.Context(), uid); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

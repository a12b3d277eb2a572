package httpapi

import (
	"net/http"
)

type shareRequest struct {
	FriendIDs []string `json:"friendIds"`
}

type membersResponse struct {
	Members []string `json:"members"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (h *handler) members(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	members, err := h.svc.Sync.OrderedMembers(r.Context(), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, membersResponse{Members: members})
}

func (h *handler) friendsCount(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.svc.Sync.SharedFriendsCount(r.Context(), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// share replaces the member set with the owner plus friendIds.
func (h *handler) share(w http.ResponseWriter, r *http.Request) {
	t, err := ownTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Membership.ShareWithFriends(r.Context(), t.OwnerID, t.CollectionID, req.FriendIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) shareCandidates(w http.ResponseWriter, r *http.Request) {
	t, err := ownTarget(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	candidates, err := h.svc.Membership.ShareCandidates(r.Context(), t.OwnerID, t.CollectionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (h *handler) join(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Membership.JoinViaLink(r.Context(), t.CurrentUserID, t.OwnerID, t.CollectionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) leave(w http.ResponseWriter, r *http.Request) {
	t, err := target(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Sync.LeaveCollection(r.Context(), t.CurrentUserID, t.CollectionID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

type friendRequestRequest struct {
	UserID string `json:"userId"`
}

type idsResponse struct {
	UserIDs []string `json:"userIds"`
}

type requestsResponse struct {
	Incoming []models.FriendRequest `json:"incoming"`
	Outgoing []models.FriendRequest `json:"outgoing"`
}

func (h *handler) friends(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids, err := h.svc.Social.Friends(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idsResponse{UserIDs: ids})
}

func (h *handler) removeFriend(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.svc.Social.RemoveFriend)
}

func (h *handler) friendRequests(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var resp requestsResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		resp.Incoming, err = h.svc.Social.IncomingRequests(ctx, uid)
		return err
	})
	g.Go(func() (err error) {
		resp.Outgoing, err = h.svc.Social.OutgoingRequests(ctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req friendRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Social.SendFriendRequest(r.Context(), uid, req.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) approveFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.svc.Social.ApproveFriendRequest)
}

func (h *handler) rejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.svc.Social.RejectFriendRequest)
}

func (h *handler) cancelFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.svc.Social.CancelFriendRequest)
}

func (h *handler) blocks(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids, err := h.svc.Social.BlockedUsers(r.Context(), uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idsResponse{UserIDs: ids})
}

func (h *handler) block(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.svc.Social.Block)
}

func (h *handler) unblock(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.svc.Social.Unblock)
}

// userAction runs a social operation between the caller and {userId}.
func (h *handler) userAction(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, currentUserID, otherID string) error) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := op(r.Context(), uid, chi.URLParam(r, "userId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

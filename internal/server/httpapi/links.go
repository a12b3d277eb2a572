package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/linkresolve"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/dmitrijs2005/placeshare/internal/server/services"
)

type resolveRequest struct {
	URL string `json:"url"`
}

// resolveLink runs the link pipeline for the caller. Collection links join
// the caller to the collection; a link to one of the caller's own
// collections simply opens it.
func (h *handler) resolveLink(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.fail(w, r, fmt.Errorf("%w: url is required", common.ErrInvalidArgument))
		return
	}

	var rec linkresolve.Recorder
	h.svc.Links.Resolve(r.Context(), req.URL, h.opener(uid), &rec)
	writeJSON(w, http.StatusOK, rec.Result)
}

func (h *handler) opener(uid string) linkresolve.OpenCollectionFunc {
	return func(ctx context.Context, ownerID, collectionID string) (*models.Collection, error) {
		c, err := h.svc.Membership.JoinViaLink(ctx, uid, ownerID, collectionID)
		if errors.Is(err, common.ErrAlreadyOwned) {
			return h.svc.Loading.LoadCollection(ctx, services.Target{
				CurrentUserID: uid,
				OwnerID:       uid,
				CollectionID:  collectionID,
			})
		}
		return c, err
	}
}

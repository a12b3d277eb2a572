package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/server/auth"
	"github.com/dmitrijs2005/placeshare/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}
	return nil
}

func userID(r *http.Request) (string, error) {
	id, ok := auth.CurrentUserID(r.Context())
	if !ok {
		return "", common.ErrUnauthenticated
	}
	return id, nil
}

// target builds the collection address from the route and the caller.
func target(r *http.Request) (services.Target, error) {
	uid, err := userID(r)
	if err != nil {
		return services.Target{}, err
	}
	return services.Target{
		CurrentUserID: uid,
		OwnerID:       chi.URLParam(r, "ownerId"),
		CollectionID:  chi.URLParam(r, "collectionId"),
	}, nil
}

// ownTarget is target for owner-only routes.
func ownTarget(r *http.Request) (services.Target, error) {
	t, err := target(r)
	if err != nil {
		return t, err
	}
	if t.OwnerID != t.CurrentUserID {
		return t, common.ErrNotOwner
	}
	return t, nil
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorBody is the JSON body of every failed request. Action names what the
// client can offer the user next, if anything.
type ErrorBody struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	OwnerID string `json:"ownerId,omitempty"`
}

const (
	actionSignIn        = "sign_in"
	actionFriendRequest = "send_friend_request"
	actionOpenOwned     = "open_collection"
	actionReload        = "reload"
)

type errorMapping struct {
	target error
	status int
	body   ErrorBody
}

// errorTable is matched in order with errors.Is.
var errorTable = []errorMapping{
	{common.ErrInvalidArgument, http.StatusBadRequest, ErrorBody{Code: "invalid_argument", Title: "Invalid Request", Message: "The request is missing or has invalid fields."}},
	{common.ErrInvalidPath, http.StatusBadRequest, ErrorBody{Code: "invalid_argument", Title: "Invalid Request", Message: "The request is missing or has invalid fields."}},
	{common.ErrUnauthenticated, http.StatusUnauthorized, ErrorBody{Code: "unauthenticated", Title: "Sign In Required", Message: "Sign in to continue.", Action: actionSignIn}},
	{common.ErrTokenExpired, http.StatusUnauthorized, ErrorBody{Code: "token_expired", Title: "Session Expired", Message: "Your session has expired. Sign in again.", Action: actionSignIn}},
	{common.ErrInvalidToken, http.StatusUnauthorized, ErrorBody{Code: "invalid_token", Title: "Sign In Required", Message: "Sign in to continue.", Action: actionSignIn}},

	{common.ErrFriendRequired, http.StatusForbidden, ErrorBody{Code: "friend_required", Title: "Friends Only", Message: "You need to be friends with the owner to join this collection.", Action: actionFriendRequest}},
	{common.ErrBlocked, http.StatusForbidden, ErrorBody{Code: "blocked", Title: "Not Available", Message: "This action is not available."}},
	{common.ErrNotOwner, http.StatusForbidden, ErrorBody{Code: "not_owner", Title: "Owner Only", Message: "Only the owner can change this collection."}},

	{common.ErrCollectionNotFound, http.StatusNotFound, ErrorBody{Code: "collection_not_found", Title: "Collection Not Found", Message: "This collection no longer exists.", Action: actionReload}},
	{common.ErrPlaceNotFound, http.StatusNotFound, ErrorBody{Code: "place_not_found", Title: "Place Not Found", Message: "The place is not in this collection.", Action: actionReload}},
	{common.ErrEventNotFound, http.StatusNotFound, ErrorBody{Code: "event_not_found", Title: "Event Not Found", Message: "The event is not in this collection.", Action: actionReload}},
	{common.ErrOwnerNotFound, http.StatusNotFound, ErrorBody{Code: "owner_not_found", Title: "Owner Not Found", Message: "The owner of this collection no longer exists."}},
	{common.ErrUserNotFound, http.StatusNotFound, ErrorBody{Code: "user_not_found", Title: "User Not Found", Message: "The user does not exist."}},
	{common.ErrRequestNotFound, http.StatusNotFound, ErrorBody{Code: "request_not_found", Title: "Request Not Found", Message: "The friend request does not exist."}},

	{common.ErrAlreadyOwned, http.StatusConflict, ErrorBody{Code: "already_owned", Title: "Your Collection", Message: "You already own this collection.", Action: actionOpenOwned}},
	{common.ErrDuplicatePlace, http.StatusConflict, ErrorBody{Code: "duplicate_place", Title: "Already Added", Message: "The place is already in the collection."}},
	{common.ErrOwnerCannotLeave, http.StatusConflict, ErrorBody{Code: "owner_cannot_leave", Title: "Cannot Leave", Message: "The owner cannot leave their own collection. Delete it instead."}},
	{common.ErrCollectionUnavailable, http.StatusGone, ErrorBody{Code: "collection_unavailable", Title: "Collection Unavailable", Message: "This collection is no longer active."}},

	{common.ErrNoPlacesArray, http.StatusUnprocessableEntity, ErrorBody{Code: "corrupt_collection", Title: "Collection Damaged", Message: "The collection has no place list."}},
	{common.ErrNoEventsArray, http.StatusUnprocessableEntity, ErrorBody{Code: "corrupt_collection", Title: "Collection Damaged", Message: "The collection has no event list."}},
	{common.ErrMalformedRecord, http.StatusUnprocessableEntity, ErrorBody{Code: "corrupt_record", Title: "Data Damaged", Message: "A stored record could not be read."}},
}

var internalError = ErrorBody{Code: "internal", Title: "Something Went Wrong", Message: "Please try again later."}

// mapError classifies err. Unknown errors become a generic 500 so transport
// details never reach the client.
func mapError(err error) (int, ErrorBody) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			body := m.body
			var fr *common.FriendRequiredError
			if errors.As(err, &fr) {
				body.OwnerID = fr.OwnerID
			}
			return m.status, body
		}
	}
	return http.StatusInternalServerError, internalError
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)

	args := []any{"method", r.Method, "path", r.URL.Path, "status", status, "error", err}
	if id := middleware.GetReqID(r.Context()); id != "" {
		args = append(args, "request_id", id)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", args...)
	} else {
		h.logger.Debug(r.Context(), "request rejected", args...)
	}

	writeJSON(w, status, body)
}

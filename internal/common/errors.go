// Package common defines shared constants and sentinel errors used across
// the store, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidPath     = errors.New("invalid document path")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidArgument = errors.New("invalid argument")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Not-found errors for collection content.
	ErrCollectionNotFound = errors.New("collection not found")
	ErrPlaceNotFound      = errors.New("place not found in collection")
	ErrEventNotFound      = errors.New("event not found")
	ErrOwnerNotFound      = errors.New("collection owner not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrRequestNotFound    = errors.New("friend request not found")

	// Structural errors: the document exists but lacks a required array.
	ErrNoPlacesArray = errors.New("no places array found in collection")
	ErrNoEventsArray = errors.New("no events array found in collection")

	// Social / authorization errors.
	ErrAlreadyOwned          = errors.New("collection is already owned by the current user")
	ErrFriendRequired        = errors.New("friend relation required")
	ErrBlocked               = errors.New("user is blocked")
	ErrCollectionUnavailable = errors.New("collection is not active")
	ErrOwnerCannotLeave      = errors.New("owner cannot leave own collection")
	ErrNotOwner              = errors.New("only the owner can change this collection")

	// Duplicate errors.
	ErrDuplicatePlace = errors.New("place already exists in target collection")
)

// FriendRequiredError is returned when joining a shared collection requires
// an accepted friend relation with its owner. OwnerID lets the caller offer
// a friend request to the right user.
type FriendRequiredError struct {
	OwnerID string
}

func (e *FriendRequiredError) Error() string {
	return fmt.Sprintf("friend relation with %s required", e.OwnerID)
}

// Is reports ErrFriendRequired so callers can match without errors.As.
func (e *FriendRequiredError) Is(target error) bool {
	return target == ErrFriendRequired
}

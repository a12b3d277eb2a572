// Package services contains the server-side business logic: the replica
// synchronization engine, membership lifecycle, collection loading and the
// social graph it depends on.
//
// Services are stateless structs built once at startup and shared by the
// transport. Every operation takes the acting user's id explicitly; an empty
// id fails with common.ErrUnauthenticated before any store access. No
// operation retries a failed store call.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
)

// timeNow is a seam for tests.
var timeNow = func() time.Time { return time.Now().UTC() }

// Target addresses one collection as seen by the acting user: OwnerID holds
// the authoritative copy, CurrentUserID the copy being acted on. Both are the
// same user when the owner acts on their own collection.
type Target struct {
	CurrentUserID string
	OwnerID       string
	CollectionID  string
}

func (t Target) validate() error {
	if t.CurrentUserID == "" {
		return common.ErrUnauthenticated
	}
	if t.OwnerID == "" || t.CollectionID == "" {
		return fmt.Errorf("%w: owner and collection ids are required", common.ErrInvalidArgument)
	}
	return nil
}

func (t Target) ownerPath() docstore.Path {
	return docstore.CollectionDoc(t.OwnerID, t.CollectionID)
}

func (t Target) callerPath() docstore.Path {
	return docstore.CollectionDoc(t.CurrentUserID, t.CollectionID)
}

func (t Target) isOwner() bool {
	return t.CurrentUserID == t.OwnerID
}

// dualWrite updates the same fields on the authoritative copy and the
// caller's copy. When both are one document the second update simply
// repeats the first.
func (t Target) dualWrite(fields ...docstore.FieldUpdate) []docstore.Write {
	return []docstore.Write{
		docstore.Update(t.ownerPath(), fields...),
		docstore.Update(t.callerPath(), fields...),
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return common.ErrUnauthenticated
	}
	return nil
}

// getDoc reads p, translating a missing document into notFound.
func getDoc(ctx context.Context, store docstore.Store, p docstore.Path, notFound error) (docstore.Document, error) {
	doc, err := store.Get(ctx, p)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return doc, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}

// exists reports whether p is present.
func exists(ctx context.Context, store docstore.Store, p docstore.Path) (bool, error) {
	_, err := store.Get(ctx, p)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p, err)
	}
	return true, nil
}

// userAlive reports whether the user record exists and is not flagged
// deleted.
func userAlive(ctx context.Context, store docstore.Store, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	doc, err := store.Get(ctx, docstore.UserDoc(userID))
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read user %s: %w", userID, err)
	}
	return !doc.Bool("isDeleted"), nil
}

// placesOf decodes the places array of a collection document.
func placesOf(doc docstore.Document) ([]models.Place, error) {
	items, ok := doc.Array("places")
	if !ok {
		return nil, common.ErrNoPlacesArray
	}
	return models.DecodePlaces(items)
}

// eventsOf decodes the events array of a collection document.
func eventsOf(doc docstore.Document) ([]models.EventRef, error) {
	items, ok := doc.Array("events")
	if !ok {
		return nil, common.ErrNoEventsArray
	}
	return models.DecodeEventRefs(items)
}

func isStructural(err error) bool {
	return errors.Is(err, common.ErrNoPlacesArray) ||
		errors.Is(err, common.ErrNoEventsArray) ||
		errors.Is(err, common.ErrMalformedRecord)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

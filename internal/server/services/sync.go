package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// AvatarStore signs uploads and removes collection avatar images.
type AvatarStore interface {
	PresignAvatarUpload(ctx context.Context, ownerID, collectionID string) (key, url string, err error)
	DeleteAvatar(ctx context.Context, ownerID, collectionID string) error
}

// ImageChecker verifies that an event cover image is reachable.
type ImageChecker interface {
	Check(ctx context.Context, url string) error
}

// SyncService propagates mutations of shared collection state to both the
// authoritative copy and the acting user's copy in one atomic batch.
//
// Shared state is always read fresh right before it is written. Places and
// events are rewritten as whole arrays, hearts as individual fields so
// concurrent heart edits on other places are preserved.
type SyncService struct {
	store     docstore.Store
	relations Relations
	avatars   AvatarStore
	images    ImageChecker
	logger    logging.Logger
}

func NewSyncService(store docstore.Store, relations Relations, avatars AvatarStore, images ImageChecker, logger logging.Logger) *SyncService {
	return &SyncService{
		store:     store,
		relations: relations,
		avatars:   avatars,
		images:    images,
		logger:    logger.With("module", "sync_service"),
	}
}

// authorize validates t and refuses members who are blocked by the owner, or
// who blocked the owner. Their replica stays in place; it only stops working.
func (s *SyncService) authorize(ctx context.Context, t Target) error {
	if err := t.validate(); err != nil {
		return err
	}
	if t.isOwner() {
		return nil
	}
	blocked, err := s.relations.BlockedEither(ctx, t.CurrentUserID, t.OwnerID)
	if err != nil {
		return err
	}
	if blocked {
		return common.ErrBlocked
	}
	return nil
}

// readCallerPlaces loads the undecoded places array of the caller's copy.
// Entries are still checked to decode so malformed records are reported,
// but callers edit the raw maps so keys this server does not model survive
// the rewrite.
func (s *SyncService) readCallerPlaces(ctx context.Context, t Target) ([]any, error) {
	doc, err := getDoc(ctx, s.store, t.callerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := placesOf(doc); err != nil {
		s.logger.Error(ctx, "collection places unreadable", "path", t.callerPath().String(), "error", err)
		return nil, err
	}
	items, _ := doc.Array("places")
	return items, nil
}

// ToggleVisited sets the visited flag of one place and writes the full
// places list to both copies.
func (s *SyncService) ToggleVisited(ctx context.Context, t Target, placeID string, visited bool) error {
	if err := s.authorize(ctx, t); err != nil {
		return err
	}

	items, err := s.readCallerPlaces(ctx, t)
	if err != nil {
		return err
	}

	i := models.IndexOfRawPlace(items, placeID)
	if i < 0 {
		return common.ErrPlaceNotFound
	}
	entry := maps.Clone(items[i].(map[string]any))
	entry["visited"] = visited
	updated := slices.Clone(items)
	updated[i] = entry

	return s.store.Batch(ctx, t.dualWrite(docstore.Field("places", updated))...)
}

// DeletePlace removes a place from both copies. Removing an id that is not
// present succeeds without writing.
func (s *SyncService) DeletePlace(ctx context.Context, t Target, placeID string) error {
	if err := s.authorize(ctx, t); err != nil {
		return err
	}

	items, err := s.readCallerPlaces(ctx, t)
	if err != nil {
		return err
	}

	i := models.IndexOfRawPlace(items, placeID)
	if i < 0 {
		return nil
	}
	kept := slices.Delete(slices.Clone(items), i, i+1)

	return s.store.Batch(ctx, t.dualWrite(docstore.Field("places", kept))...)
}

// AddPlace inserts a new place. The owner rewrites the list after a
// duplicate check; a member can only append to both copies.
func (s *SyncService) AddPlace(ctx context.Context, t Target, place models.Place) (*models.Place, error) {
	if err := s.authorize(ctx, t); err != nil {
		return nil, err
	}
	if place.PlaceID == "" {
		return nil, fmt.Errorf("%w: placeId is required", common.ErrInvalidArgument)
	}
	place.AddedAt = timeNow()

	doc, err := getDoc(ctx, s.store, t.ownerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	places, err := placesOf(doc)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNoPlacesArray) && !t.isOwner():
		// the union below creates the array
	default:
		s.logger.Error(ctx, "collection places unreadable", "path", t.ownerPath().String(), "error", err)
		return nil, err
	}
	if models.IndexOfPlace(places, place.PlaceID) >= 0 {
		return nil, common.ErrDuplicatePlace
	}

	if t.isOwner() {
		places = append(places, place)
		err = s.store.Batch(ctx, docstore.Update(t.ownerPath(), docstore.Field("places", places)))
	} else {
		err = s.store.Batch(ctx, t.dualWrite(docstore.Field("places", docstore.ArrayUnion("placeId", place)))...)
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// FlushHearts persists pending heart changes as field merges on
// placeHearts.<placeId>. An empty list deletes the field. No write is issued
// when nothing is pending.
func (s *SyncService) FlushHearts(ctx context.Context, t Target, pending map[string][]string) error {
	if err := s.authorize(ctx, t); err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	placeIDs := make([]string, 0, len(pending))
	for id := range pending {
		if id == "" {
			return fmt.Errorf("%w: empty place id in heart changes", common.ErrInvalidArgument)
		}
		placeIDs = append(placeIDs, id)
	}
	sort.Strings(placeIDs)

	fields := make([]docstore.FieldUpdate, 0, len(placeIDs))
	for _, id := range placeIDs {
		users := dedupe(pending[id])
		if len(users) == 0 {
			fields = append(fields, docstore.Nested(docstore.DeleteField, "placeHearts", id))
			continue
		}
		fields = append(fields, docstore.Nested(users, "placeHearts", id))
	}

	return s.store.Batch(ctx, t.dualWrite(fields...)...)
}

// LoadPlaceHearts reads the heart map from the authoritative copy.
func (s *SyncService) LoadPlaceHearts(ctx context.Context, t Target) (map[string][]string, error) {
	if err := s.authorize(ctx, t); err != nil {
		return nil, err
	}
	doc, err := getDoc(ctx, s.store, t.ownerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}

	hearts := make(map[string][]string)
	for placeID, raw := range doc.Map("placeHearts") {
		users, _ := raw.([]any)
		ids := make([]string, 0, len(users))
		for _, u := range users {
			if id, ok := u.(string); ok {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			hearts[placeID] = ids
		}
	}
	return hearts, nil
}

// UpdateIcon sets either a named icon or an icon URL, clearing the other.
// The URL wins when both are given; neither is a no-op.
func (s *SyncService) UpdateIcon(ctx context.Context, t Target, iconName, iconURL string) error {
	if err := s.authorize(ctx, t); err != nil {
		return err
	}

	var fields []docstore.FieldUpdate
	switch {
	case iconURL != "":
		fields = []docstore.FieldUpdate{
			docstore.Field("iconUrl", iconURL),
			docstore.Field("iconName", docstore.DeleteField),
		}
	case iconName != "":
		fields = []docstore.FieldUpdate{
			docstore.Field("iconName", iconName),
			docstore.Field("iconUrl", docstore.DeleteField),
		}
	default:
		return nil
	}

	return s.store.Batch(ctx, t.dualWrite(fields...)...)
}

// PresignAvatarUpload returns a presigned URL the caller can PUT the avatar
// image to. The caller must hold a copy of the collection.
func (s *SyncService) PresignAvatarUpload(ctx context.Context, t Target) (key, url string, err error) {
	if err := s.authorize(ctx, t); err != nil {
		return "", "", err
	}
	if _, err := getDoc(ctx, s.store, t.callerPath(), common.ErrCollectionNotFound); err != nil {
		return "", "", err
	}
	return s.avatars.PresignAvatarUpload(ctx, t.OwnerID, t.CollectionID)
}

// UpdateAvatarThumbnail records the uploaded thumbnail URL on both copies.
func (s *SyncService) UpdateAvatarThumbnail(ctx context.Context, t Target, url string) error {
	if err := s.authorize(ctx, t); err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("%w: thumbnail url is required", common.ErrInvalidArgument)
	}
	return s.store.Batch(ctx, t.dualWrite(
		docstore.Field("avatarThumbnailURL", url),
		docstore.Field("avatarThumbnailUpdatedAt", timeNow()),
	)...)
}

// LeaveCollection deletes the caller's replica and nothing else. Leaving a
// collection the caller no longer holds succeeds.
func (s *SyncService) LeaveCollection(ctx context.Context, currentUserID, collectionID string) error {
	if err := requireUser(currentUserID); err != nil {
		return err
	}
	p := docstore.CollectionDoc(currentUserID, collectionID)

	doc, err := getDoc(ctx, s.store, p, common.ErrCollectionNotFound)
	if errors.Is(err, common.ErrCollectionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if doc.Bool("isOwner") {
		return common.ErrOwnerCannotLeave
	}

	if err := s.store.Delete(ctx, p); err != nil {
		return err
	}
	s.logger.Info(ctx, "left collection", "user", currentUserID, "collection", collectionID)
	return nil
}

// OrderedMembers lists the members of the authoritative copy, owner first.
// Members blocked in either direction relative to the caller are left out
// even while the stored list still names them. The owner is always kept.
func (s *SyncService) OrderedMembers(ctx context.Context, t Target) ([]string, error) {
	if err := s.authorize(ctx, t); err != nil {
		return nil, err
	}
	doc, err := getDoc(ctx, s.store, t.ownerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	members := models.OrderedMembers(t.OwnerID, doc.Strings("members"))

	visible := make([]bool, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		if m == t.CurrentUserID || m == t.OwnerID {
			visible[i] = true
			continue
		}
		g.Go(func() error {
			blocked, err := s.relations.BlockedEither(gctx, t.CurrentUserID, m)
			if err != nil {
				return err
			}
			visible[i] = !blocked
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(members))
	for i, m := range members {
		if visible[i] {
			out = append(out, m)
		}
	}
	return out, nil
}

// SharedFriendsCount counts the visible members other than the caller.
func (s *SyncService) SharedFriendsCount(ctx context.Context, t Target) (int, error) {
	members, err := s.OrderedMembers(ctx, t)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range members {
		if m != t.CurrentUserID {
			n++
		}
	}
	return n, nil
}

package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// eventFanOut bounds concurrent event document reads.
const eventFanOut = 8

// DeleteEvent removes one event reference from both copies.
func (s *SyncService) DeleteEvent(ctx context.Context, t Target, eventID string) error {
	if err := s.authorize(ctx, t); err != nil {
		return err
	}

	events, err := s.readCallerEvents(ctx, t)
	if err != nil {
		return err
	}

	kept := make([]models.EventRef, 0, len(events))
	for _, e := range events {
		if e.EventID != eventID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(events) {
		return common.ErrEventNotFound
	}

	return s.store.Batch(ctx, t.dualWrite(docstore.Field("events", kept))...)
}

// CleanupDeletedEvents keeps only the references whose id is in activeIDs
// and returns how many were removed. Both copies are written only when the
// list actually shrank. A collection without events has nothing to prune.
func (s *SyncService) CleanupDeletedEvents(ctx context.Context, t Target, activeIDs []string) (int, error) {
	if err := s.authorize(ctx, t); err != nil {
		return 0, err
	}

	doc, err := getDoc(ctx, s.store, t.callerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return 0, err
	}
	if _, ok := doc.Array("events"); !ok {
		return 0, nil
	}
	events, err := eventsOf(doc)
	if err != nil {
		s.logger.Error(ctx, "collection events unreadable", "path", t.callerPath().String(), "error", err)
		return 0, err
	}

	active := toSet(activeIDs)
	kept := make([]models.EventRef, 0, len(events))
	for _, e := range events {
		if _, ok := active[e.EventID]; ok {
			kept = append(kept, e)
		}
	}

	removed := len(events) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.store.Batch(ctx, t.dualWrite(docstore.Field("events", kept))...); err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "pruned stale events", "collection", t.CollectionID, "removed", removed)
	return removed, nil
}

// LoadEvents resolves every event referenced by the caller's copy and
// returns the active ones in reference order. Missing or inactive events are
// left out. Cover images that cannot be reached are dropped from the result
// without failing the call.
func (s *SyncService) LoadEvents(ctx context.Context, t Target) ([]models.Event, error) {
	if err := s.authorize(ctx, t); err != nil {
		return nil, err
	}

	events, err := s.readCallerEvents(ctx, t)
	if err != nil {
		return nil, err
	}

	resolved := make([]*models.Event, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(eventFanOut)
	for i, ref := range events {
		g.Go(func() error {
			e, err := s.loadEvent(gctx, ref, t.OwnerID)
			if err != nil {
				return err
			}
			resolved[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Event, 0, len(resolved))
	for _, e := range resolved {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

// RefreshEvents loads the active events and prunes the stale references.
func (s *SyncService) RefreshEvents(ctx context.Context, t Target) ([]models.Event, int, error) {
	events, err := s.LoadEvents(ctx, t)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	removed, err := s.CleanupDeletedEvents(ctx, t, ids)
	if err != nil {
		return nil, 0, err
	}
	return events, removed, nil
}

func (s *SyncService) readCallerEvents(ctx context.Context, t Target) ([]models.EventRef, error) {
	doc, err := getDoc(ctx, s.store, t.callerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	events, err := eventsOf(doc)
	if err != nil {
		s.logger.Error(ctx, "collection events unreadable", "path", t.callerPath().String(), "error", err)
		return nil, err
	}
	return events, nil
}

// loadEvent returns nil for stale references. References without an event
// owner point at the collection owner's events.
func (s *SyncService) loadEvent(ctx context.Context, ref models.EventRef, collectionOwner string) (*models.Event, error) {
	if ref.EventID == "" {
		return nil, nil
	}
	owner := ref.OwnerUserID
	if owner == "" {
		owner = collectionOwner
	}

	doc, err := getDoc(ctx, s.store, docstore.EventDoc(owner, ref.EventID), common.ErrEventNotFound)
	if errors.Is(err, common.ErrEventNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e, err := models.DecodeEvent(doc)
	if err != nil {
		s.logger.Error(ctx, "event unreadable", "event", ref.EventID, "error", err)
		return nil, err
	}
	if !e.IsActive() {
		return nil, nil
	}
	e.ID = ref.EventID

	if s.images != nil && len(e.ImageURLs) > 0 {
		if err := s.images.Check(ctx, e.ImageURLs[0]); err != nil {
			s.logger.Warn(ctx, "event cover image unavailable", "event", e.ID, "error", err)
			e.ImageURLs = e.ImageURLs[1:]
		}
	}
	return e, nil
}

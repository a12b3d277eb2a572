package services

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// sharedFanOut bounds concurrent verification of shared collections.
const sharedFanOut = 8

// LoadResult is a user's collection list split by ownership.
type LoadResult struct {
	Owned  []models.Collection `json:"owned"`
	Shared []models.Collection `json:"shared"`
}

type loadOptions struct {
	status    models.Status
	anyStatus bool
}

type LoadOption func(*loadOptions)

// WithStatus restricts the result to one status. The default is active.
func WithStatus(status models.Status) LoadOption {
	return func(o *loadOptions) { o.status = status }
}

// WithAnyStatus disables status filtering.
func WithAnyStatus() LoadOption {
	return func(o *loadOptions) { o.anyStatus = true }
}

func (o loadOptions) keep(c *models.Collection) bool {
	return o.anyStatus || c.EffectiveStatus() == o.status
}

// LoadingService reads collection lists and heals replicas whose owner or
// authoritative copy has gone away.
type LoadingService struct {
	store     docstore.Store
	relations Relations
	logger    logging.Logger
}

func NewLoadingService(store docstore.Store, relations Relations, logger logging.Logger) *LoadingService {
	return &LoadingService{
		store:     store,
		relations: relations,
		logger:    logger.With("module", "loading_service"),
	}
}

// LoadCollections returns the user's owned and shared collections. Owned
// and shared lists load concurrently; the first failure fails the call.
//
// A shared replica is only a pointer: its body comes from the owner's copy.
// Replicas whose owner is gone are tombstoned inactive with ownerDeleted, and
// replicas whose owner copy is gone are marked inactive. Both are left out,
// as are collections shared across a block.
func (s *LoadingService) LoadCollections(ctx context.Context, userID string, opts ...LoadOption) (*LoadResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	o := loadOptions{status: models.StatusActive}
	for _, opt := range opts {
		opt(&o)
	}

	snaps, err := s.store.List(ctx, docstore.Collections(userID))
	if err != nil {
		return nil, err
	}

	var owned, shared []docstore.Snapshot
	for _, snap := range snaps {
		if snap.Data.Bool("isOwner") {
			owned = append(owned, snap)
		} else {
			shared = append(shared, snap)
		}
	}

	res := &LoadResult{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Owned, err = s.loadOwned(owned, o)
		return err
	})
	g.Go(func() (err error) {
		res.Shared, err = s.loadShared(gctx, userID, shared, o)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *LoadingService) loadOwned(snaps []docstore.Snapshot, o loadOptions) ([]models.Collection, error) {
	out := make([]models.Collection, 0, len(snaps))
	for _, snap := range snaps {
		c, err := models.DecodeCollection(snap.Data)
		if err != nil {
			return nil, err
		}
		c.ID = snap.ID()
		if o.keep(c) {
			out = append(out, *c)
		}
	}
	sortCollections(out)
	return out, nil
}

func (s *LoadingService) loadShared(ctx context.Context, userID string, snaps []docstore.Snapshot, o loadOptions) ([]models.Collection, error) {
	results := make([]*models.Collection, len(snaps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sharedFanOut)
	for i, snap := range snaps {
		g.Go(func() (err error) {
			results[i], err = s.verifyShared(gctx, userID, snap)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Collection, 0, len(results))
	for _, c := range results {
		if c != nil && o.keep(c) {
			out = append(out, *c)
		}
	}
	sortCollections(out)
	return out, nil
}

// verifyShared returns the fresh authoritative body for a replica, or nil
// when the replica must be hidden.
func (s *LoadingService) verifyShared(ctx context.Context, userID string, snap docstore.Snapshot) (*models.Collection, error) {
	replica, err := models.DecodeCollection(snap.Data)
	if err != nil {
		return nil, err
	}
	collectionID := snap.ID()
	ownerID := replica.OwnerID
	if ownerID == "" {
		ownerID = replica.SharedBy
	}

	alive, err := userAlive(ctx, s.store, ownerID)
	if err != nil {
		return nil, err
	}
	if !alive {
		if replica.EffectiveStatus() != models.StatusInactive || !replica.OwnerDeleted {
			err := s.store.Batch(ctx, docstore.Update(snap.Path,
				docstore.Field("status", models.StatusInactive),
				docstore.Field("ownerDeleted", true),
			))
			if err != nil {
				return nil, err
			}
			s.logger.Info(ctx, "replica tombstoned", "user", userID, "owner", ownerID, "collection", collectionID)
		}
		return nil, nil
	}

	blocked, err := s.relations.BlockedEither(ctx, userID, ownerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, nil
	}

	doc, err := s.store.Get(ctx, docstore.CollectionDoc(ownerID, collectionID))
	if isNotFound(err) {
		if replica.EffectiveStatus() != models.StatusInactive {
			if err := s.store.Batch(ctx, docstore.Update(snap.Path,
				docstore.Field("status", models.StatusInactive),
			)); err != nil {
				return nil, err
			}
			s.logger.Info(ctx, "orphaned replica deactivated", "user", userID, "owner", ownerID, "collection", collectionID)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c, err := models.DecodeCollection(doc)
	if err != nil {
		s.logger.Error(ctx, "collection unreadable", "owner", ownerID, "collection", collectionID, "error", err)
		return nil, err
	}
	c.ID = collectionID
	c.OwnerID = ownerID
	c.IsOwner = false
	c.SharedBy = ownerID
	if replica.SharedAt != nil {
		c.SharedAt = replica.SharedAt
	}
	return c, nil
}

// LoadCollection returns one collection as the caller sees it: the owner
// copy for members, the caller's own copy for the owner. The caller must
// hold a copy.
func (s *LoadingService) LoadCollection(ctx context.Context, t Target) (*models.Collection, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if _, err := getDoc(ctx, s.store, t.callerPath(), common.ErrCollectionNotFound); err != nil {
		return nil, err
	}
	if !t.isOwner() {
		blocked, err := s.relations.BlockedEither(ctx, t.CurrentUserID, t.OwnerID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, common.ErrCollectionNotFound
		}
	}
	doc, err := getDoc(ctx, s.store, t.ownerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	c, err := models.DecodeCollection(doc)
	if err != nil {
		return nil, err
	}
	c.ID = t.CollectionID
	c.OwnerID = t.OwnerID
	c.IsOwner = t.isOwner()
	return c, nil
}

// sortCollections orders newest first, ties by id.
func sortCollections(cs []models.Collection) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AvatarRemover deletes a collection's stored avatar.
type AvatarRemover interface {
	DeleteAvatar(ctx context.Context, ownerID, collectionID string) error
}

// CollectionService manages the lifecycle of owned collections.
type CollectionService struct {
	store   docstore.Store
	avatars AvatarRemover
	logger  logging.Logger
}

func NewCollectionService(store docstore.Store, avatars AvatarRemover, logger logging.Logger) *CollectionService {
	return &CollectionService{
		store:   store,
		avatars: avatars,
		logger:  logger.With("module", "collection_service"),
	}
}

// Create stores a new active collection owned by ownerID.
func (s *CollectionService) Create(ctx context.Context, ownerID, name, iconName string) (*models.Collection, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrInvalidArgument)
	}

	c := &models.Collection{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		IsOwner:   true,
		Status:    models.StatusActive,
		Places:    []models.Place{},
		Members:   []string{ownerID},
		IconName:  iconName,
		CreatedAt: timeNow(),
	}
	if err := s.store.Batch(ctx, docstore.Set(docstore.CollectionDoc(ownerID, c.ID), c)); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "collection created", "owner", ownerID, "collection", c.ID)
	return c, nil
}

// Rename changes the name on the owner copy and every existing replica.
func (s *CollectionService) Rename(ctx context.Context, ownerID, collectionID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", common.ErrInvalidArgument)
	}
	return s.propagate(ctx, ownerID, collectionID, docstore.Field("name", name))
}

// Complete marks the collection completed for everyone holding it.
func (s *CollectionService) Complete(ctx context.Context, ownerID, collectionID string) error {
	return s.propagate(ctx, ownerID, collectionID, docstore.Field("status", models.StatusCompleted))
}

// PutBack returns a completed collection to the active list.
func (s *CollectionService) PutBack(ctx context.Context, ownerID, collectionID string) error {
	return s.propagate(ctx, ownerID, collectionID, docstore.Field("status", models.StatusActive))
}

// propagate applies fields to the owner copy and the replicas that still
// exist, in one batch. Members who left are not resurrected.
func (s *CollectionService) propagate(ctx context.Context, ownerID, collectionID string, fields ...docstore.FieldUpdate) error {
	members, err := s.ownedMembers(ctx, ownerID, collectionID)
	if err != nil {
		return err
	}
	present, err := s.existingReplicas(ctx, members, collectionID)
	if err != nil {
		return err
	}

	writes := []docstore.Write{docstore.Update(docstore.CollectionDoc(ownerID, collectionID), fields...)}
	for _, m := range present {
		writes = append(writes, docstore.Update(docstore.CollectionDoc(m, collectionID), fields...))
	}
	return s.store.Batch(ctx, writes...)
}

// Delete removes the owner copy and every replica, then the avatar. A
// failed avatar removal is logged and otherwise ignored.
func (s *CollectionService) Delete(ctx context.Context, ownerID, collectionID string) error {
	members, err := s.ownedMembers(ctx, ownerID, collectionID)
	if err != nil {
		return err
	}

	writes := []docstore.Write{docstore.Delete(docstore.CollectionDoc(ownerID, collectionID))}
	for _, m := range members {
		writes = append(writes, docstore.Delete(docstore.CollectionDoc(m, collectionID)))
	}
	if err := s.store.Batch(ctx, writes...); err != nil {
		return err
	}

	if s.avatars != nil {
		if err := s.avatars.DeleteAvatar(ctx, ownerID, collectionID); err != nil {
			s.logger.Warn(ctx, "avatar cleanup failed", "owner", ownerID, "collection", collectionID, "error", err)
		}
	}
	s.logger.Info(ctx, "collection deleted", "owner", ownerID, "collection", collectionID, "replicas", len(members))
	return nil
}

// ownedMembers checks that ownerID owns the collection and returns the
// members other than the owner.
func (s *CollectionService) ownedMembers(ctx context.Context, ownerID, collectionID string) ([]string, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, err
	}
	doc, err := getDoc(ctx, s.store, docstore.CollectionDoc(ownerID, collectionID), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	if !doc.Bool("isOwner") {
		return nil, common.ErrNotOwner
	}
	members := make([]string, 0)
	for _, m := range dedupe(doc.Strings("members")) {
		if m != ownerID {
			members = append(members, m)
		}
	}
	return members, nil
}

func (s *CollectionService) existingReplicas(ctx context.Context, members []string, collectionID string) ([]string, error) {
	found := make([]bool, len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		g.Go(func() (err error) {
			found[i], err = exists(gctx, s.store, docstore.CollectionDoc(m, collectionID))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for i, m := range members {
		if found[i] {
			out = append(out, m)
		}
	}
	return out, nil
}

package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"golang.org/x/sync/errgroup"
)

// MembershipService governs who holds a replica of a collection.
//
// A user joins from a shared link and writes only their own replica. The
// owner's members list is rewritten only by the owner, through
// ShareWithFriends, so it can lag behind joins until the owner shares again.
type MembershipService struct {
	store     docstore.Store
	relations Relations
	logger    logging.Logger
}

func NewMembershipService(store docstore.Store, relations Relations, logger logging.Logger) *MembershipService {
	return &MembershipService{
		store:     store,
		relations: relations,
		logger:    logger.With("module", "membership_service"),
	}
}

// JoinViaLink validates a shared-link join and creates the caller's replica.
// The checks run in order and stop at the first failure:
//
//  1. the caller owns the collection: common.ErrAlreadyOwned
//  2. the caller already holds a replica: it is returned unchanged
//  3. the authoritative copy is missing: common.ErrCollectionNotFound,
//     its owner's account is gone: common.ErrOwnerNotFound,
//     or it is not active: common.ErrCollectionUnavailable
//  4. a block exists in either direction: common.ErrBlocked
//  5. caller and owner are not friends: *common.FriendRequiredError
func (s *MembershipService) JoinViaLink(ctx context.Context, currentUserID, ownerID, collectionID string) (*models.Collection, error) {
	if err := requireUser(currentUserID); err != nil {
		return nil, err
	}
	if ownerID == "" || collectionID == "" {
		return nil, fmt.Errorf("%w: owner and collection ids are required", common.ErrInvalidArgument)
	}
	if ownerID == currentUserID {
		return nil, common.ErrAlreadyOwned
	}

	replicaPath := docstore.CollectionDoc(currentUserID, collectionID)
	existing, err := s.store.Get(ctx, replicaPath)
	switch {
	case err == nil:
		c, err := models.DecodeCollection(existing)
		if err != nil {
			s.logger.Error(ctx, "replica unreadable", "path", replicaPath.String(), "error", err)
			return nil, err
		}
		c.ID = collectionID
		return c, nil
	case !isNotFound(err):
		return nil, fmt.Errorf("read %s: %w", replicaPath, err)
	}

	ownerDoc, err := getDoc(ctx, s.store, docstore.CollectionDoc(ownerID, collectionID), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	alive, err := userAlive(ctx, s.store, ownerID)
	if err != nil {
		return nil, err
	}
	if !alive {
		return nil, common.ErrOwnerNotFound
	}
	authoritative, err := models.DecodeCollection(ownerDoc)
	if err != nil {
		s.logger.Error(ctx, "collection unreadable", "owner", ownerID, "collection", collectionID, "error", err)
		return nil, err
	}
	if authoritative.EffectiveStatus() != models.StatusActive {
		return nil, common.ErrCollectionUnavailable
	}

	blocked, err := s.relations.BlockedEither(ctx, currentUserID, ownerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, common.ErrBlocked
	}

	friends, err := s.relations.AreFriends(ctx, currentUserID, ownerID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, &common.FriendRequiredError{OwnerID: ownerID}
	}

	replica := newReplica(authoritative, ownerID, collectionID,
		dedupe(append(models.OrderedMembers(ownerID, authoritative.Members), currentUserID)))
	if err := s.store.Batch(ctx, docstore.Set(replicaPath, replica)); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "joined collection", "user", currentUserID, "owner", ownerID, "collection", collectionID)
	return replica, nil
}

// newReplica copies the shared fields of the authoritative copy.
func newReplica(src *models.Collection, ownerID, collectionID string, members []string) *models.Collection {
	now := timeNow()
	places := src.Places
	if places == nil {
		places = []models.Place{}
	}
	return &models.Collection{
		ID:                       collectionID,
		Name:                     src.Name,
		OwnerID:                  ownerID,
		SharedBy:                 ownerID,
		IsOwner:                  false,
		Status:                   src.EffectiveStatus(),
		Places:                   places,
		Members:                  members,
		PlaceHearts:              src.PlaceHearts,
		Events:                   src.Events,
		IconName:                 src.IconName,
		IconURL:                  src.IconURL,
		AvatarThumbnailURL:       src.AvatarThumbnailURL,
		AvatarThumbnailUpdatedAt: src.AvatarThumbnailUpdatedAt,
		CreatedAt:                src.CreatedAt,
		SharedAt:                 &now,
	}
}

// ShareWithFriends makes friendIDs the exact member set of the owner's
// collection: the owner copy gets the new members list, new members get a
// replica, removed members lose theirs and remaining replicas are updated.
// Every friend must be an accepted friend and not blocked either way.
func (s *MembershipService) ShareWithFriends(ctx context.Context, ownerID, collectionID string, friendIDs []string) (*models.Collection, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, err
	}

	ownerPath := docstore.CollectionDoc(ownerID, collectionID)
	doc, err := getDoc(ctx, s.store, ownerPath, common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	c, err := models.DecodeCollection(doc)
	if err != nil {
		s.logger.Error(ctx, "collection unreadable", "path", ownerPath.String(), "error", err)
		return nil, err
	}
	if !c.IsOwner {
		return nil, common.ErrNotOwner
	}
	c.ID = collectionID
	c.OwnerID = ownerID

	friends := dedupe(friendIDs)
	if err := s.checkShareable(ctx, ownerID, friends); err != nil {
		return nil, err
	}

	members := models.OrderedMembers(ownerID, friends)
	previous := toSet(c.Members)
	next := toSet(members)

	// kept members may have left since; they get a fresh replica
	present := make([]bool, len(friends))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range friends {
		if _, ok := previous[f]; !ok {
			continue
		}
		g.Go(func() (err error) {
			present[i], err = exists(gctx, s.store, docstore.CollectionDoc(f, collectionID))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := timeNow()
	writes := []docstore.Write{
		docstore.Update(ownerPath,
			docstore.Field("members", members),
			docstore.Field("sharedAt", now),
		),
	}
	for i, f := range friends {
		replicaPath := docstore.CollectionDoc(f, collectionID)
		if present[i] {
			writes = append(writes, docstore.Update(replicaPath,
				docstore.Field("members", members),
				docstore.Field("sharedAt", now),
			))
			continue
		}
		writes = append(writes, docstore.Set(replicaPath, newReplica(c, ownerID, collectionID, members)))
	}

	removed := make([]string, 0)
	for m := range previous {
		if _, ok := next[m]; !ok && m != ownerID {
			removed = append(removed, m)
		}
	}
	sort.Strings(removed)
	for _, m := range removed {
		writes = append(writes, docstore.Delete(docstore.CollectionDoc(m, collectionID)))
	}

	if err := s.store.Batch(ctx, writes...); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "collection shared", "owner", ownerID, "collection", collectionID,
		"members", len(members), "removed", len(removed))

	c.Members = members
	c.SharedAt = &now
	return c, nil
}

func (s *MembershipService) checkShareable(ctx context.Context, ownerID string, friends []string) error {
	for _, f := range friends {
		if f == ownerID {
			return fmt.Errorf("%w: owner cannot be shared with", common.ErrInvalidArgument)
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range friends {
		g.Go(func() error {
			blocked, err := s.relations.BlockedEither(gctx, ownerID, f)
			if err != nil {
				return err
			}
			if blocked {
				return fmt.Errorf("%s: %w", f, common.ErrBlocked)
			}
			ok, err := s.relations.AreFriends(gctx, ownerID, f)
			if err != nil {
				return err
			}
			if !ok {
				return &common.FriendRequiredError{OwnerID: f}
			}
			return nil
		})
	}
	return g.Wait()
}

// Candidate is a friend the owner may share a collection with.
type Candidate struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	IsMember bool   `json:"isMember"`
}

// ShareCandidates lists the owner's friends that may see the collection,
// flagging current members. Users blocked in either direction are left out
// even when a stale members list still names them.
func (s *MembershipService) ShareCandidates(ctx context.Context, ownerID, collectionID string) ([]Candidate, error) {
	if err := requireUser(ownerID); err != nil {
		return nil, err
	}

	doc, err := getDoc(ctx, s.store, docstore.CollectionDoc(ownerID, collectionID), common.ErrCollectionNotFound)
	if err != nil {
		return nil, err
	}
	members := toSet(doc.Strings("members"))

	friends, err := s.store.List(ctx, docstore.Friends(ownerID))
	if err != nil {
		return nil, err
	}

	candidates := make([]*Candidate, len(friends))
	g, gctx := errgroup.WithContext(ctx)
	for i, snap := range friends {
		friendID := snap.ID()
		g.Go(func() error {
			blocked, err := s.relations.BlockedEither(gctx, ownerID, friendID)
			if err != nil || blocked {
				return err
			}
			c := &Candidate{UserID: friendID}
			if _, ok := members[friendID]; ok {
				c.IsMember = true
			}
			profile, err := s.store.Get(gctx, docstore.UserDoc(friendID))
			switch {
			case err == nil:
				c.Name = profile.String("name")
			case !isNotFound(err):
				return err
			}
			candidates[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectionIDs(cs []models.Collection) []string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestLoadCollections(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	for _, u := range []string{"me", "alice", "bob", "carol"} {
		seedUser(t, store, u)
	}

	mine := ownedCollection("me", "mine", nil)
	mineDone := ownedCollection("me", "mine-done", nil)
	mineDone.Status = models.StatusCompleted
	mineDone.CreatedAt = fixedNow.Add(-time.Hour)
	legacy := ownedCollection("me", "legacy", nil)
	legacy.Status = ""
	legacy.CreatedAt = fixedNow.Add(-2 * time.Hour)
	seedShared(t, store, mine)
	seedShared(t, store, mineDone)
	seedShared(t, store, legacy)

	fromAlice := ownedCollection("alice", "a1", []string{"me"}, place("p1"))
	seedShared(t, store, fromAlice)
	// the replica is stale; loading must return the owner's body
	seed(t, store, docstore.Update(docstore.CollectionDoc("alice", "a1"),
		docstore.Field("places", docstore.ArrayUnion("placeId", place("p2")))))

	fromGone := ownedCollection("ghost", "g1", []string{"me"})
	seedShared(t, store, fromGone)

	fromDeleted := ownedCollection("bob", "b1", []string{"me"})
	seedShared(t, store, fromDeleted)
	seed(t, store, docstore.Update(docstore.UserDoc("bob"), docstore.Field("isDeleted", true)))

	orphan := ownedCollection("carol", "o1", []string{"me"})
	seedShared(t, store, orphan)
	seed(t, store, docstore.Delete(docstore.CollectionDoc("carol", "o1")))

	svc := NewLoadingService(store, NewSocialService(store, logging.Nop()), logging.Nop())

	res, err := svc.LoadCollections(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "legacy"}, collectionIDs(res.Owned))
	require.Equal(t, []string{"a1"}, collectionIDs(res.Shared))
	assert.Equal(t, []string{"p1", "p2"}, placeIDs(res.Shared[0].Places))
	assert.False(t, res.Shared[0].IsOwner)
	assert.Equal(t, "alice", res.Shared[0].OwnerID)

	for _, cid := range []string{"g1", "b1"} {
		r := loadCollection(t, store, "me", cid)
		assert.Equal(t, models.StatusInactive, r.Status, cid)
		assert.True(t, r.OwnerDeleted, cid)
	}
	o := loadCollection(t, store, "me", "o1")
	assert.Equal(t, models.StatusInactive, o.Status)
	assert.False(t, o.OwnerDeleted)

	res, err = svc.LoadCollections(ctx, "me", WithStatus(models.StatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, []string{"mine-done"}, collectionIDs(res.Owned))
	assert.Empty(t, res.Shared)

	res, err = svc.LoadCollections(ctx, "me", WithAnyStatus())
	require.NoError(t, err)
	assert.Equal(t, []string{"mine", "mine-done", "legacy"}, collectionIDs(res.Owned))
	assert.Equal(t, []string{"a1"}, collectionIDs(res.Shared), "tombstoned replicas stay hidden")
}

func TestLoadCollections_TombstoneWrittenOnce(t *testing.T) {
	ctx := context.Background()
	store, counter := newTestStore(t)
	seedUser(t, store, "me")
	seedShared(t, store, ownedCollection("ghost", "g1", []string{"me"}))
	svc := NewLoadingService(store, NewSocialService(store, logging.Nop()), logging.Nop())

	_, err := svc.LoadCollections(ctx, "me")
	require.NoError(t, err)
	counter.reset()
	_, err = svc.LoadCollections(ctx, "me")
	require.NoError(t, err)
	assert.Zero(t, counter.writes())
}

func TestLoadCollections_BlockedOwnerHidden(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedUser(t, store, "alice")
	seedShared(t, store, ownedCollection("alice", "a1", []string{"me"}))
	seedBlock(t, store, "alice", "me")
	svc := NewLoadingService(store, NewSocialService(store, logging.Nop()), logging.Nop())

	res, err := svc.LoadCollections(ctx, "me")
	require.NoError(t, err)
	assert.Empty(t, res.Shared)

	_, err = svc.LoadCollection(ctx, Target{CurrentUserID: "me", OwnerID: "alice", CollectionID: "a1"})
	assert.ErrorIs(t, err, common.ErrCollectionNotFound)
}

func TestLoadCollections_RelationFailureFailsCall(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedUser(t, store, "alice")
	seedShared(t, store, ownedCollection("me", "mine", nil))
	seedShared(t, store, ownedCollection("alice", "a1", []string{"me"}))
	svc := NewLoadingService(store, &fakeRelations{err: errors.New("boom")}, logging.Nop())

	res, err := svc.LoadCollections(ctx, "me")
	assert.Error(t, err)
	assert.Nil(t, res)

	_, err = svc.LoadCollections(ctx, "")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestLoadCollection(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedShared(t, store, ownedCollection("alice", "a1", []string{"me"}, place("p1")))
	svc := NewLoadingService(store, &fakeRelations{}, logging.Nop())

	c, err := svc.LoadCollection(ctx, Target{CurrentUserID: "me", OwnerID: "alice", CollectionID: "a1"})
	require.NoError(t, err)
	assert.False(t, c.IsOwner)
	assert.Equal(t, "a1", c.ID)

	c, err = svc.LoadCollection(ctx, Target{CurrentUserID: "alice", OwnerID: "alice", CollectionID: "a1"})
	require.NoError(t, err)
	assert.True(t, c.IsOwner)

	_, err = svc.LoadCollection(ctx, Target{CurrentUserID: "eve", OwnerID: "alice", CollectionID: "a1"})
	assert.ErrorIs(t, err, common.ErrCollectionNotFound)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollections_Create(t *testing.T) {
	freezeTime(t)
	ctx := context.Background()
	store, _ := newTestStore(t)
	svc := NewCollectionService(store, &fakeAvatars{}, logging.Nop())

	c, err := svc.Create(ctx, "owner", "  Lisbon  ", "star")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	stored := loadCollection(t, store, "owner", c.ID)
	assert.Equal(t, "Lisbon", stored.Name)
	assert.True(t, stored.IsOwner)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Equal(t, []string{"owner"}, stored.Members)
	assert.NotNil(t, stored.Places)
	assert.Empty(t, stored.Places)

	_, err = svc.Create(ctx, "owner", " ", "")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = svc.Create(ctx, "", "x", "")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestCollections_StatusPropagation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedShared(t, store, ownedCollection("owner", "c1", []string{"bob", "carol"}))
	seed(t, store, docstore.Delete(docstore.CollectionDoc("carol", "c1")))
	svc := NewCollectionService(store, &fakeAvatars{}, logging.Nop())

	require.NoError(t, svc.Complete(ctx, "owner", "c1"))
	assert.Equal(t, models.StatusCompleted, loadCollection(t, store, "owner", "c1").Status)
	assert.Equal(t, models.StatusCompleted, loadCollection(t, store, "bob", "c1").Status)
	_, err := store.Get(ctx, docstore.CollectionDoc("carol", "c1"))
	assert.ErrorIs(t, err, common.ErrorNotFound, "departed members are not resurrected")

	require.NoError(t, svc.PutBack(ctx, "owner", "c1"))
	assert.Equal(t, models.StatusActive, loadCollection(t, store, "bob", "c1").Status)

	require.NoError(t, svc.Rename(ctx, "owner", "c1", "Porto"))
	assert.Equal(t, "Porto", loadCollection(t, store, "bob", "c1").Name)

	assert.ErrorIs(t, svc.Complete(ctx, "bob", "c1"), common.ErrNotOwner)
	assert.ErrorIs(t, svc.Complete(ctx, "owner", "nope"), common.ErrCollectionNotFound)
}

func TestCollections_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedShared(t, store, ownedCollection("owner", "c1", []string{"bob"}))
	avatars := &fakeAvatars{deleteErr: errors.New("s3 down")}
	svc := NewCollectionService(store, avatars, logging.Nop())

	require.NoError(t, svc.Delete(ctx, "owner", "c1"), "avatar cleanup is best effort")
	for _, u := range []string{"owner", "bob"} {
		_, err := store.Get(ctx, docstore.CollectionDoc(u, "c1"))
		assert.ErrorIs(t, err, common.ErrorNotFound)
	}
	assert.Equal(t, []string{"owner/c1"}, avatars.deleted)

	assert.ErrorIs(t, svc.Delete(ctx, "owner", "c1"), common.ErrCollectionNotFound)
}

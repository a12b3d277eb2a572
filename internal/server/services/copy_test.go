package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyStep_String(t *testing.T) {
	assert.Equal(t, "read_source", copyReadSource.String())
	assert.Equal(t, "into_shared", copyIntoShared.String())
	assert.Equal(t, "done", copyDone.String())
}

func TestCopyPlace_IntoOwned(t *testing.T) {
	freezeTime(t)
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedShared(t, store, ownedCollection("owner", "src", []string{"bob"}, place("p1")))
	seedShared(t, store, ownedCollection("bob", "mine", nil, place("x")))
	svc := newSync(store, &fakeRelations{})

	// numeric fields written as strings by older clients are coerced
	seed(t, store, docstore.Update(docstore.CollectionDoc("owner", "src"),
		docstore.Field("places", []map[string]any{{"placeId": "p1", "name": "Cafe", "rating": "4.5", "latitude": 10, "visited": true}}),
	))

	got, err := svc.CopyPlace(ctx, CopyRequest{
		CurrentUserID:      "bob",
		PlaceID:            "p1",
		SourceOwnerID:      "owner",
		SourceCollectionID: "src",
		TargetCollectionID: "mine",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cafe", got.Name)
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, fixedNow, got.AddedAt)

	target := loadCollection(t, store, "bob", "mine")
	assert.Equal(t, []string{"x", "p1"}, placeIDs(target.Places))

	_, err = svc.CopyPlace(ctx, CopyRequest{
		CurrentUserID: "bob", PlaceID: "p1", SourceOwnerID: "owner",
		SourceCollectionID: "src", TargetCollectionID: "mine",
	})
	assert.ErrorIs(t, err, common.ErrDuplicatePlace)
}

func TestCopyPlace_IntoSharedNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedShared(t, store, ownedCollection("bob", "src", nil, place("p9")))
	seedShared(t, store, ownedCollection("owner", "shared", []string{"bob"}, place("p1")))
	svc := newSync(store, &fakeRelations{})

	// the owner added p2 after bob's replica was last refreshed
	seed(t, store, docstore.Update(docstore.CollectionDoc("owner", "shared"),
		docstore.Field("places", docstore.ArrayUnion("placeId", place("p2")))))

	_, err := svc.CopyPlace(ctx, CopyRequest{
		CurrentUserID:      "bob",
		PlaceID:            "p9",
		SourceCollectionID: "src",
		TargetCollectionID: "shared",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p9"}, placeIDs(loadCollection(t, store, "owner", "shared").Places))
	assert.Equal(t, []string{"p1", "p9"}, placeIDs(loadCollection(t, store, "bob", "shared").Places))

	// the owner copy already has p2 even though bob's replica does not
	seed(t, store, docstore.Update(docstore.CollectionDoc("bob", "src"),
		docstore.Field("places", docstore.ArrayUnion("placeId", place("p2")))))
	_, err = svc.CopyPlace(ctx, CopyRequest{
		CurrentUserID: "bob", PlaceID: "p2",
		SourceCollectionID: "src", TargetCollectionID: "shared",
	})
	assert.ErrorIs(t, err, common.ErrDuplicatePlace)
}

func TestCopyPlace_Errors(t *testing.T) {
	ctx := context.Background()
	store, counter := newTestStore(t)
	seedShared(t, store, ownedCollection("owner", "src", nil, place("p1")))
	seedShared(t, store, ownedCollection("bob", "mine", nil))
	seed(t, store, docstore.Set(docstore.CollectionDoc("bob", "empty"), map[string]any{"isOwner": true, "userId": "bob"}))
	svc := newSync(store, &fakeRelations{})
	counter.reset()

	cases := []struct {
		name string
		req  CopyRequest
		want error
	}{
		{"unauthenticated", CopyRequest{PlaceID: "p1", SourceCollectionID: "src", TargetCollectionID: "mine"}, common.ErrUnauthenticated},
		{"missing ids", CopyRequest{CurrentUserID: "bob", PlaceID: "p1"}, common.ErrInvalidArgument},
		{"source not held", CopyRequest{CurrentUserID: "bob", PlaceID: "p1", SourceOwnerID: "owner", SourceCollectionID: "src", TargetCollectionID: "mine"}, common.ErrCollectionNotFound},
		{"source missing", CopyRequest{CurrentUserID: "bob", PlaceID: "p1", SourceCollectionID: "nope", TargetCollectionID: "mine"}, common.ErrCollectionNotFound},
		{"no places array", CopyRequest{CurrentUserID: "bob", PlaceID: "p1", SourceCollectionID: "empty", TargetCollectionID: "mine"}, common.ErrPlaceNotFound},
		{"place missing", CopyRequest{CurrentUserID: "bob", PlaceID: "zz", SourceCollectionID: "mine", TargetCollectionID: "empty"}, common.ErrPlaceNotFound},
		{"target missing", CopyRequest{CurrentUserID: "owner", PlaceID: "p1", SourceCollectionID: "src", TargetCollectionID: "nope"}, common.ErrCollectionNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CopyPlace(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, counter.writes())
}

func TestCopyPlace_IntoOwnedWithoutPlacesArray(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedShared(t, store, ownedCollection("bob", "src", nil, place("p1")))
	seed(t, store, docstore.Set(docstore.CollectionDoc("bob", "bare"), map[string]any{"isOwner": true, "userId": "bob"}))
	svc := newSync(store, &fakeRelations{})

	_, err := svc.CopyPlace(ctx, CopyRequest{CurrentUserID: "bob", PlaceID: "p1", SourceCollectionID: "src", TargetCollectionID: "bare"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, placeIDs(loadCollection(t, store, "bob", "bare").Places))
}

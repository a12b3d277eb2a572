package docstore

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBunt(t *testing.T) *BuntStore {
	t.Helper()
	s, err := OpenBunt(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBuntStore_GetMissing(t *testing.T) {
	s := newBunt(t)
	_, err := s.Get(context.Background(), CollectionDoc("u1", "c1"))
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestBuntStore_SetThenGet(t *testing.T) {
	s := newBunt(t)
	ctx := context.Background()
	p := CollectionDoc("u1", "c1")

	require.NoError(t, s.Batch(ctx, Set(p, map[string]any{"name": "Tokyo", "places": []any{}})))

	doc, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", doc.String("name"))
	places, ok := doc.Array("places")
	assert.True(t, ok)
	assert.Empty(t, places)
}

func TestBuntStore_InvalidPath(t *testing.T) {
	s := newBunt(t)
	ctx := context.Background()

	_, err := s.Get(ctx, Collections("u1"))
	assert.ErrorIs(t, err, common.ErrInvalidPath)

	_, err = s.List(ctx, UserDoc("u1"))
	assert.ErrorIs(t, err, common.ErrInvalidPath)

	err = s.Batch(ctx, Set(Path("users"), map[string]any{}))
	assert.ErrorIs(t, err, common.ErrInvalidPath)

	require.NoError(t, s.Batch(ctx, Set(Path("users/u1/collections/c1/places/p1"), map[string]any{"name": "x"})))
	_, err = s.Get(ctx, CollectionDoc("u1", "c1/places/p1"))
	assert.ErrorIs(t, err, common.ErrInvalidPath)
	err = s.Batch(ctx, Delete(CollectionDoc("u1", "c1/places/p1")))
	assert.ErrorIs(t, err, common.ErrInvalidPath)
	_, err = s.Get(ctx, Path("users/u1/collections/c1/places/p1"))
	assert.NoError(t, err)
}

func TestBuntStore_BatchIsAtomic(t *testing.T) {
	s := newBunt(t)
	ctx := context.Background()
	owner := CollectionDoc("owner", "c1")
	replica := CollectionDoc("member", "c1")

	require.NoError(t, s.Batch(ctx, Set(owner, map[string]any{"iconName": "star"})))

	// replica is missing, so the whole batch must fail
	err := s.Batch(ctx,
		Update(owner, Field("iconName", "heart")),
		Update(replica, Field("iconName", "heart")),
	)
	require.ErrorIs(t, err, common.ErrorNotFound)

	doc, err := s.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "star", doc.String("iconName"), "owner copy must be untouched")
}

func TestBuntStore_BatchSameDocumentTwice(t *testing.T) {
	s := newBunt(t)
	ctx := context.Background()
	p := CollectionDoc("u1", "c1")
	require.NoError(t, s.Batch(ctx, Set(p, map[string]any{"n": 1})))

	require.NoError(t, s.Batch(ctx,
		Update(p, Field("a", "x")),
		Update(p, Field("b", "y")),
	))

	doc, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, Document{"n": float64(1), "a": "x", "b": "y"}, doc)
}

func TestBuntStore_MergeCreatesAndDeleteIsIdempotent(t *testing.T) {
	s := newBunt(t)
	ctx := context.Background()
	p := UserDoc("u1")

	require.NoError(t, s.SetMerge(ctx, p, Field("name", "Ann")))
	require.NoError(t, s.SetMerge(ctx, p, Field("isDeleted", false)))

	doc, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, Document{"name": "Ann", "isDeleted": false}, doc)

	require.NoError(t, s.Delete(ctx, p))
	require.NoError(t, s.Delete(ctx, p))
	_, err = s.Get(ctx, p)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestBuntStore_ListDirectChildrenOnly(t *testing.T) {
	s := newBunt(t)
	ctx := context.Background()

	require.NoError(t, s.Batch(ctx,
		Set(CollectionDoc("u1", "b"), map[string]any{"name": "B"}),
		Set(CollectionDoc("u1", "a"), map[string]any{"name": "A"}),
		Set(CollectionDoc("u2", "c"), map[string]any{"name": "C"}),
		Set(EventDoc("u1", "e1"), map[string]any{"title": "E"}),
		Set(UserDoc("u1"), map[string]any{"name": "U"}),
	))

	snaps, err := s.List(ctx, Collections("u1"))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "a", snaps[0].ID())
	assert.Equal(t, "b", snaps[1].ID())

	empty, err := s.List(ctx, Friends("u1"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBuntStore_CancelledContext(t *testing.T) {
	s := newBunt(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Batch(ctx, Set(UserDoc("u1"), map[string]any{}))
	assert.ErrorIs(t, err, context.Canceled)
}

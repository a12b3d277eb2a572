package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func freezeTime(t *testing.T) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return fixedNow }
	t.Cleanup(func() { timeNow = prev })
}

// opCounter counts store operations through the instrumented decorator.
type opCounter struct {
	mu  sync.Mutex
	ops map[string]int
}

func (c *opCounter) observe(op string, _ time.Duration, _ error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops[op]++
}

func (c *opCounter) count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ops[op]
}

func (c *opCounter) writes() int {
	return c.count("batch") + c.count("set_merge") + c.count("delete")
}

func (c *opCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = map[string]int{}
}

func newTestStore(t *testing.T) (docstore.Store, *opCounter) {
	t.Helper()
	bunt, err := docstore.OpenBunt(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunt.Close() })
	counter := &opCounter{ops: map[string]int{}}
	return docstore.Instrumented(bunt, counter.observe), counter
}

func seed(t *testing.T, store docstore.Store, writes ...docstore.Write) {
	t.Helper()
	require.NoError(t, store.Batch(context.Background(), writes...))
}

func seedUser(t *testing.T, store docstore.Store, id string) {
	t.Helper()
	seed(t, store, docstore.Set(docstore.UserDoc(id), models.User{ID: id, Name: "user " + id, CreatedAt: fixedNow}))
}

func seedFriends(t *testing.T, store docstore.Store, a, b string) {
	t.Helper()
	seed(t, store,
		docstore.Set(docstore.FriendDoc(a, b), models.Friend{UserID: b, Since: fixedNow}),
		docstore.Set(docstore.FriendDoc(b, a), models.Friend{UserID: a, Since: fixedNow}),
	)
}

func seedBlock(t *testing.T, store docstore.Store, blocker, blocked string) {
	t.Helper()
	seed(t, store, docstore.Set(docstore.BlockedDoc(blocker, blocked), models.Block{UserID: blocked, BlockedAt: fixedNow}))
}

func place(id string) models.Place {
	return models.Place{PlaceID: id, Name: "place " + id, Latitude: 1, Longitude: 2, AddedAt: fixedNow}
}

func ownedCollection(owner, id string, members []string, places ...models.Place) *models.Collection {
	if places == nil {
		places = []models.Place{}
	}
	return &models.Collection{
		ID:        id,
		Name:      "collection " + id,
		OwnerID:   owner,
		IsOwner:   true,
		Status:    models.StatusActive,
		Places:    places,
		Members:   models.OrderedMembers(owner, members),
		CreatedAt: fixedNow,
	}
}

func replicaOf(c *models.Collection) *models.Collection {
	r := *c
	r.IsOwner = false
	r.SharedBy = c.OwnerID
	return &r
}

// seedShared stores an owner copy plus a replica for every non-owner member.
func seedShared(t *testing.T, store docstore.Store, c *models.Collection) {
	t.Helper()
	writes := []docstore.Write{docstore.Set(docstore.CollectionDoc(c.OwnerID, c.ID), c)}
	for _, m := range c.Members {
		if m != c.OwnerID {
			writes = append(writes, docstore.Set(docstore.CollectionDoc(m, c.ID), replicaOf(c)))
		}
	}
	seed(t, store, writes...)
}

func loadCollection(t *testing.T, store docstore.Store, user, id string) *models.Collection {
	t.Helper()
	doc, err := store.Get(context.Background(), docstore.CollectionDoc(user, id))
	require.NoError(t, err)
	c, err := models.DecodeCollection(doc)
	require.NoError(t, err)
	return c
}

func placeIDs(places []models.Place) []string {
	ids := make([]string, 0, len(places))
	for _, p := range places {
		ids = append(ids, p.PlaceID)
	}
	return ids
}

type fakeRelations struct {
	friends map[[2]string]bool
	blocked map[[2]string]bool
	err     error
}

func (f *fakeRelations) AreFriends(_ context.Context, a, b string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.friends[[2]string{a, b}] || f.friends[[2]string{b, a}], nil
}

func (f *fakeRelations) BlockedEither(_ context.Context, a, b string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.blocked[[2]string{a, b}] || f.blocked[[2]string{b, a}], nil
}

type fakeAvatars struct {
	mu         sync.Mutex
	presignErr error
	deleteErr  error
	deleted    []string
}

func (f *fakeAvatars) PresignAvatarUpload(_ context.Context, ownerID, collectionID string) (string, string, error) {
	if f.presignErr != nil {
		return "", "", f.presignErr
	}
	key := "collection_avatars/" + ownerID + "/" + collectionID + "/avatar.png"
	return key, "https://s3.example/" + key + "?sig=1", nil
}

func (f *fakeAvatars) DeleteAvatar(_ context.Context, ownerID, collectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ownerID+"/"+collectionID)
	return f.deleteErr
}

type fakeImages struct {
	failing map[string]bool
}

func (f *fakeImages) Check(_ context.Context, url string) error {
	if f.failing[url] {
		return context.DeadlineExceeded
	}
	return nil
}

func newSync(store docstore.Store, rel Relations) *SyncService {
	return NewSyncService(store, rel, &fakeAvatars{}, &fakeImages{}, logging.Nop())
}

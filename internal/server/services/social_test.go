package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocial_RequestLifecycle(t *testing.T) {
	freezeTime(t)
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	svc := NewSocialService(store, logging.Nop())

	require.NoError(t, svc.SendFriendRequest(ctx, "alice", "bob"))

	in, err := svc.IncomingRequests(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "alice", in[0].FromUserID)
	assert.True(t, fixedNow.Equal(in[0].CreatedAt))

	out, err := svc.OutgoingRequests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0].ToUserID)

	require.NoError(t, svc.ApproveFriendRequest(ctx, "bob", "alice"))
	ok, err := svc.AreFriends(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	friends, err := svc.Friends(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, friends)

	in, err = svc.IncomingRequests(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, in)

	assert.ErrorIs(t, svc.ApproveFriendRequest(ctx, "bob", "alice"), common.ErrRequestNotFound)

	require.NoError(t, svc.RemoveFriend(ctx, "alice", "bob"))
	ok, err = svc.AreFriends(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSocial_RejectAndCancel(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	svc := NewSocialService(store, logging.Nop())

	require.NoError(t, svc.SendFriendRequest(ctx, "alice", "bob"))
	require.NoError(t, svc.RejectFriendRequest(ctx, "bob", "alice"))
	out, err := svc.OutgoingRequests(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, out)

	require.NoError(t, svc.SendFriendRequest(ctx, "alice", "bob"))
	require.NoError(t, svc.CancelFriendRequest(ctx, "alice", "bob"))
	in, err := svc.IncomingRequests(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestSocial_SendErrors(t *testing.T) {
	ctx := context.Background()
	store, counter := newTestStore(t)
	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedFriends(t, store, "alice", "carol")
	seedUser(t, store, "carol")
	seedBlock(t, store, "bob", "alice")
	svc := NewSocialService(store, logging.Nop())
	counter.reset()

	assert.ErrorIs(t, svc.SendFriendRequest(ctx, "", "bob"), common.ErrUnauthenticated)
	assert.ErrorIs(t, svc.SendFriendRequest(ctx, "alice", "alice"), common.ErrInvalidArgument)
	assert.ErrorIs(t, svc.SendFriendRequest(ctx, "alice", "nobody"), common.ErrUserNotFound)
	assert.ErrorIs(t, svc.SendFriendRequest(ctx, "alice", "bob"), common.ErrBlocked)
	assert.NoError(t, svc.SendFriendRequest(ctx, "alice", "carol"), "already friends")
	assert.Zero(t, counter.writes())
}

func TestSocial_BlockClearsEdges(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedUser(t, store, "carol")
	seedFriends(t, store, "alice", "bob")
	svc := NewSocialService(store, logging.Nop())
	require.NoError(t, svc.SendFriendRequest(ctx, "carol", "alice"))

	require.NoError(t, svc.Block(ctx, "alice", "bob"))
	require.NoError(t, svc.Block(ctx, "alice", "carol"))

	ok, err := svc.AreFriends(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	blocked, err := svc.BlockedEither(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, blocked)

	in, err := svc.IncomingRequests(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, in)

	list, err := svc.BlockedUsers(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, list)

	require.NoError(t, svc.Unblock(ctx, "alice", "bob"))
	blocked, err = svc.BlockedEither(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, blocked)

	assert.ErrorIs(t, svc.Block(ctx, "alice", "alice"), common.ErrInvalidArgument)
}

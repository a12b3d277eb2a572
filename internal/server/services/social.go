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

// Relations answers the friendship and block questions that gate
// membership changes and filter what users see of each other.
type Relations interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
	BlockedEither(ctx context.Context, a, b string) (bool, error)
}

// SocialService manages friend requests, friendships and blocks. Every edge
// is stored on both users so each side can list its own relations.
type SocialService struct {
	store  docstore.Store
	logger logging.Logger
}

func NewSocialService(store docstore.Store, logger logging.Logger) *SocialService {
	return &SocialService{store: store, logger: logger.With("module", "social_service")}
}

func (s *SocialService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return exists(ctx, s.store, docstore.FriendDoc(a, b))
}

// BlockedEither reports whether a blocked b or b blocked a.
func (s *SocialService) BlockedEither(ctx context.Context, a, b string) (bool, error) {
	var ab, ba bool
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ab, err = exists(ctx, s.store, docstore.BlockedDoc(a, b))
		return err
	})
	g.Go(func() (err error) {
		ba, err = exists(ctx, s.store, docstore.BlockedDoc(b, a))
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	return ab || ba, nil
}

func (s *SocialService) SendFriendRequest(ctx context.Context, fromUserID, toUserID string) error {
	if err := requireUser(fromUserID); err != nil {
		return err
	}
	if toUserID == "" || toUserID == fromUserID {
		return fmt.Errorf("%w: cannot befriend yourself", common.ErrInvalidArgument)
	}
	if _, err := getDoc(ctx, s.store, docstore.UserDoc(toUserID), common.ErrUserNotFound); err != nil {
		return err
	}

	blocked, err := s.BlockedEither(ctx, fromUserID, toUserID)
	if err != nil {
		return err
	}
	if blocked {
		return common.ErrBlocked
	}

	friends, err := s.AreFriends(ctx, fromUserID, toUserID)
	if err != nil {
		return err
	}
	if friends {
		return nil
	}

	req := models.FriendRequest{FromUserID: fromUserID, ToUserID: toUserID, CreatedAt: timeNow()}
	if err := s.store.Batch(ctx,
		docstore.Set(docstore.FriendRequestDoc(toUserID, fromUserID), req),
		docstore.Set(docstore.SentFriendRequestDoc(fromUserID, toUserID), req),
	); err != nil {
		return err
	}
	s.logger.Info(ctx, "friend request sent", "from", fromUserID, "to", toUserID)
	return nil
}

// ApproveFriendRequest accepts the request requesterID sent to currentUserID.
func (s *SocialService) ApproveFriendRequest(ctx context.Context, currentUserID, requesterID string) error {
	if err := requireUser(currentUserID); err != nil {
		return err
	}
	if _, err := getDoc(ctx, s.store, docstore.FriendRequestDoc(currentUserID, requesterID), common.ErrRequestNotFound); err != nil {
		return err
	}

	now := timeNow()
	return s.store.Batch(ctx,
		docstore.Set(docstore.FriendDoc(currentUserID, requesterID), models.Friend{UserID: requesterID, Since: now}),
		docstore.Set(docstore.FriendDoc(requesterID, currentUserID), models.Friend{UserID: currentUserID, Since: now}),
		docstore.Delete(docstore.FriendRequestDoc(currentUserID, requesterID)),
		docstore.Delete(docstore.SentFriendRequestDoc(requesterID, currentUserID)),
	)
}

// RejectFriendRequest drops a received request.
func (s *SocialService) RejectFriendRequest(ctx context.Context, currentUserID, requesterID string) error {
	if err := requireUser(currentUserID); err != nil {
		return err
	}
	return s.store.Batch(ctx,
		docstore.Delete(docstore.FriendRequestDoc(currentUserID, requesterID)),
		docstore.Delete(docstore.SentFriendRequestDoc(requesterID, currentUserID)),
	)
}

// CancelFriendRequest withdraws a request currentUserID sent.
func (s *SocialService) CancelFriendRequest(ctx context.Context, currentUserID, receiverID string) error {
	if err := requireUser(currentUserID); err != nil {
		return err
	}
	return s.store.Batch(ctx,
		docstore.Delete(docstore.FriendRequestDoc(receiverID, currentUserID)),
		docstore.Delete(docstore.SentFriendRequestDoc(currentUserID, receiverID)),
	)
}

func (s *SocialService) RemoveFriend(ctx context.Context, currentUserID, friendID string) error {
	if err := requireUser(currentUserID); err != nil {
		return err
	}
	return s.store.Batch(ctx,
		docstore.Delete(docstore.FriendDoc(currentUserID, friendID)),
		docstore.Delete(docstore.FriendDoc(friendID, currentUserID)),
	)
}

// Block records that currentUserID blocks targetID and removes the
// friendship and any pending requests between them. Shared collections are
// not rewritten: loading and sharing filter blocked users on read.
func (s *SocialService) Block(ctx context.Context, currentUserID, targetID string) error {
	if err := requireUser(currentUserID); err != nil {
		return err
	}
	if targetID == "" || targetID == currentUserID {
		return fmt.Errorf("%w: cannot block yourself", common.ErrInvalidArgument)
	}

	err := s.store.Batch(ctx,
		docstore.Set(docstore.BlockedDoc(currentUserID, targetID), models.Block{UserID: targetID, BlockedAt: timeNow()}),
		docstore.Delete(docstore.FriendDoc(currentUserID, targetID)),
		docstore.Delete(docstore.FriendDoc(targetID, currentUserID)),
		docstore.Delete(docstore.FriendRequestDoc(currentUserID, targetID)),
		docstore.Delete(docstore.SentFriendRequestDoc(targetID, currentUserID)),
		docstore.Delete(docstore.FriendRequestDoc(targetID, currentUserID)),
		docstore.Delete(docstore.SentFriendRequestDoc(currentUserID, targetID)),
	)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "user blocked", "user", currentUserID, "blocked", targetID)
	return nil
}

func (s *SocialService) Unblock(ctx context.Context, currentUserID, targetID string) error {
	if err := requireUser(currentUserID); err != nil {
		return err
	}
	return s.store.Delete(ctx, docstore.BlockedDoc(currentUserID, targetID))
}

// Friends lists the ids of currentUserID's friends, sorted.
func (s *SocialService) Friends(ctx context.Context, currentUserID string) ([]string, error) {
	return s.listIDs(ctx, currentUserID, docstore.Friends(currentUserID))
}

// BlockedUsers lists the ids currentUserID has blocked, sorted.
func (s *SocialService) BlockedUsers(ctx context.Context, currentUserID string) ([]string, error) {
	return s.listIDs(ctx, currentUserID, docstore.Blocked(currentUserID))
}

func (s *SocialService) IncomingRequests(ctx context.Context, currentUserID string) ([]models.FriendRequest, error) {
	return s.listRequests(ctx, currentUserID, docstore.FriendRequests(currentUserID))
}

func (s *SocialService) OutgoingRequests(ctx context.Context, currentUserID string) ([]models.FriendRequest, error) {
	return s.listRequests(ctx, currentUserID, docstore.SentFriendRequests(currentUserID))
}

func (s *SocialService) listIDs(ctx context.Context, currentUserID string, parent docstore.Path) ([]string, error) {
	if err := requireUser(currentUserID); err != nil {
		return nil, err
	}
	snaps, err := s.store.List(ctx, parent)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ID())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *SocialService) listRequests(ctx context.Context, currentUserID string, parent docstore.Path) ([]models.FriendRequest, error) {
	if err := requireUser(currentUserID); err != nil {
		return nil, err
	}
	snaps, err := s.store.List(ctx, parent)
	if err != nil {
		return nil, err
	}
	out := make([]models.FriendRequest, 0, len(snaps))
	for _, snap := range snaps {
		r, err := models.DecodeFriendRequest(snap.Data)
		if err != nil {
			s.logger.Error(ctx, "malformed friend request", "path", snap.Path.String(), "error", err)
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
)

// UserService owns the user profile document that liveness checks read.
type UserService struct {
	store  docstore.Store
	logger logging.Logger
}

func NewUserService(store docstore.Store, logger logging.Logger) *UserService {
	return &UserService{store: store, logger: logger.With("module", "user_service")}
}

// EnsureProfile creates the profile on first use and updates the display
// name and avatar afterwards. A deleted account stays deleted.
func (s *UserService) EnsureProfile(ctx context.Context, userID, name, avatarURL string) (*models.User, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrInvalidArgument)
	}

	p := docstore.UserDoc(userID)
	existed, err := exists(ctx, s.store, p)
	if err != nil {
		return nil, err
	}
	fields := []docstore.FieldUpdate{
		docstore.Field("id", userID),
		docstore.Field("name", name),
		docstore.Field("avatarURL", avatarURL),
	}
	if !existed {
		fields = append(fields, docstore.Field("createdAt", timeNow()))
	}
	if err := s.store.SetMerge(ctx, p, fields...); err != nil {
		return nil, err
	}
	if !existed {
		s.logger.Info(ctx, "profile created", "user", userID)
	}
	return s.Profile(ctx, userID)
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	doc, err := getDoc(ctx, s.store, docstore.UserDoc(userID), common.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	u, err := models.DecodeUser(doc)
	if err != nil {
		return nil, err
	}
	u.ID = userID
	return u, nil
}

// DeleteAccount flags the profile deleted. Replicas of the user's shared
// collections are tombstoned lazily when their members next load.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	err := s.store.Batch(ctx, docstore.Update(docstore.UserDoc(userID), docstore.Field("isDeleted", true)))
	if isNotFound(err) {
		return common.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "account deleted", "user", userID)
	return nil
}

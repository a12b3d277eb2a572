package models

import "time"

// User is the profile document at users/{id}.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarURL,omitempty"`
	IsDeleted bool      `json:"isDeleted,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func DecodeUser(doc map[string]any) (*User, error) {
	u := &User{}
	if err := decode(doc, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Friend is stored under users/{id}/friends/{friendId}.
type Friend struct {
	UserID string    `json:"userId"`
	Since  time.Time `json:"since"`
}

// FriendRequest is mirrored under the receiver's friendRequests and the
// sender's sentFriendRequests.
type FriendRequest struct {
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func DecodeFriendRequest(doc map[string]any) (*FriendRequest, error) {
	r := &FriendRequest{}
	if err := decode(doc, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Block is stored under users/{blocker}/blocked/{blockedId}.
type Block struct {
	UserID    string    `json:"userId"`
	BlockedAt time.Time `json:"blockedAt"`
}

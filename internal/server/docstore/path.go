package docstore

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/placeshare/internal/common"
)

// Path addresses a document ("users/u1/collections/c1") or a collection of
// documents ("users/u1/collections"). Documents have an even number of
// segments, collections an odd number.
type Path string

const usersRoot = "users"

// join builds a path from ids. An id containing a separator would address a
// document somewhere else, so it is blanked and the path fails validation.
func join(segments ...string) Path {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		if !strings.Contains(seg, "/") {
			parts[i] = seg
		}
	}
	return Path(strings.Join(parts, "/"))
}

// UserDoc is the profile document of a user.
func UserDoc(userID string) Path { return join(usersRoot, userID) }

// Collections lists a user's collection documents, owned and replicated.
func Collections(userID string) Path { return join(usersRoot, userID, "collections") }

// CollectionDoc is a user's copy of one collection: the authoritative copy
// when userID is the owner, a replica otherwise.
func CollectionDoc(userID, collectionID string) Path {
	return join(usersRoot, userID, "collections", collectionID)
}

func Events(userID string) Path { return join(usersRoot, userID, "events") }

func EventDoc(userID, eventID string) Path { return join(usersRoot, userID, "events", eventID) }

func Friends(userID string) Path { return join(usersRoot, userID, "friends") }

func FriendDoc(userID, friendID string) Path { return join(usersRoot, userID, "friends", friendID) }

func Blocked(userID string) Path { return join(usersRoot, userID, "blocked") }

func BlockedDoc(userID, blockedID string) Path {
	return join(usersRoot, userID, "blocked", blockedID)
}

// FriendRequests holds requests received by userID, keyed by requester.
func FriendRequests(userID string) Path { return join(usersRoot, userID, "friendRequests") }

func FriendRequestDoc(userID, requesterID string) Path {
	return join(usersRoot, userID, "friendRequests", requesterID)
}

// SentFriendRequests holds requests sent by userID, keyed by receiver.
func SentFriendRequests(userID string) Path { return join(usersRoot, userID, "sentFriendRequests") }

func SentFriendRequestDoc(userID, receiverID string) Path {
	return join(usersRoot, userID, "sentFriendRequests", receiverID)
}

func (p Path) String() string { return string(p) }

func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// ID is the last path segment.
func (p Path) ID() string {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent drops the last segment. The parent of a document is its collection.
func (p Path) Parent() Path {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return Path(s[:i])
	}
	return ""
}

func (p Path) validSegments() bool {
	segs := p.Segments()
	if len(segs) == 0 {
		return false
	}
	for _, s := range segs {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// ValidateDocument reports common.ErrInvalidPath unless p names a document.
func (p Path) ValidateDocument() error {
	if !p.validSegments() || len(p.Segments())%2 != 0 {
		return fmt.Errorf("%w: %q is not a document path", common.ErrInvalidPath, string(p))
	}
	return nil
}

// ValidateCollection reports common.ErrInvalidPath unless p names a collection.
func (p Path) ValidateCollection() error {
	if !p.validSegments() || len(p.Segments())%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", common.ErrInvalidPath, string(p))
	}
	return nil
}

package models

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusInactive  Status = "inactive"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusCompleted, StatusInactive:
		return Status(s), true
	}
	return "", false
}

// Collection is one user's copy of a collection document. The owner's copy
// (IsOwner) is authoritative; members hold replicas with the same ID.
type Collection struct {
	ID                       string              `json:"id"`
	Name                     string              `json:"name"`
	OwnerID                  string              `json:"userId"`
	SharedBy                 string              `json:"sharedBy,omitempty"`
	IsOwner                  bool                `json:"isOwner"`
	Status                   Status              `json:"status,omitempty"`
	Places                   []Place             `json:"places"`
	Members                  []string            `json:"members"`
	PlaceHearts              map[string][]string `json:"placeHearts,omitempty"`
	Events                   []EventRef          `json:"events,omitempty"`
	IconName                 string              `json:"iconName,omitempty"`
	IconURL                  string              `json:"iconUrl,omitempty"`
	AvatarThumbnailURL       string              `json:"avatarThumbnailURL,omitempty"`
	AvatarThumbnailUpdatedAt *time.Time          `json:"avatarThumbnailUpdatedAt,omitempty"`
	OwnerDeleted             bool                `json:"ownerDeleted,omitempty"`
	CreatedAt                time.Time           `json:"createdAt"`
	SharedAt                 *time.Time          `json:"sharedAt,omitempty"`
}

// DecodeCollection decodes a stored collection document.
func DecodeCollection(doc map[string]any) (*Collection, error) {
	c := &Collection{}
	if err := decode(doc, c); err != nil {
		return nil, err
	}
	return c, nil
}

// EffectiveStatus treats a missing status as active; older records predate
// the field.
func (c *Collection) EffectiveStatus() Status {
	if c.Status == "" {
		return StatusActive
	}
	return c.Status
}

// ETag is a content hash of the collection, quoted for use as an HTTP ETag.
func (c *Collection) ETag() (string, error) {
	h, err := hashstructure.Hash(c, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`"%x"`, h), nil
}

// OrderedMembers lists the owner first followed by the members in stored
// order, without duplicates or empty ids.
func OrderedMembers(ownerID string, members []string) []string {
	seen := make(map[string]struct{}, len(members)+1)
	out := make([]string, 0, len(members)+1)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(ownerID)
	for _, m := range members {
		add(m)
	}
	return out
}

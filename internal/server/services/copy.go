package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/server/docstore"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
)

// CopyRequest copies PlaceID from the source collection into one of the
// caller's collections. An empty SourceOwnerID means the caller owns the
// source.
type CopyRequest struct {
	CurrentUserID      string
	PlaceID            string
	SourceOwnerID      string
	SourceCollectionID string
	TargetCollectionID string
}

type copyStep int

const (
	copyReadSource copyStep = iota
	copyReadTarget
	copyIntoOwned
	copyIntoShared
	copyDone
)

func (s copyStep) String() string {
	switch s {
	case copyReadSource:
		return "read_source"
	case copyReadTarget:
		return "read_target"
	case copyIntoOwned:
		return "into_owned"
	case copyIntoShared:
		return "into_shared"
	case copyDone:
		return "done"
	default:
		return "unknown"
	}
}

type copyState struct {
	req         CopyRequest
	place       models.Place
	target      docstore.Document
	targetOwner string
}

// CopyPlace runs the copy as a small state machine:
//
//	read_source -> read_target -> into_owned  -> done
//	                           \-> into_shared -> done
//
// An owned target is rewritten after a duplicate check. A shared target is
// only ever appended to, on both the owner's and the caller's copy, so the
// caller cannot drop entries of the owner's list it has not seen.
func (s *SyncService) CopyPlace(ctx context.Context, req CopyRequest) (*models.Place, error) {
	if err := requireUser(req.CurrentUserID); err != nil {
		return nil, err
	}
	if req.PlaceID == "" || req.SourceCollectionID == "" || req.TargetCollectionID == "" {
		return nil, fmt.Errorf("%w: place, source and target are required", common.ErrInvalidArgument)
	}
	if req.SourceOwnerID == "" {
		req.SourceOwnerID = req.CurrentUserID
	}

	st := &copyState{req: req}
	step := copyReadSource
	for step != copyDone {
		var next copyStep
		var err error
		switch step {
		case copyReadSource:
			next, err = s.copyReadSource(ctx, st)
		case copyReadTarget:
			next, err = s.copyReadTarget(ctx, st)
		case copyIntoOwned:
			next, err = s.copyIntoOwned(ctx, st)
		case copyIntoShared:
			next, err = s.copyIntoShared(ctx, st)
		default:
			return nil, fmt.Errorf("%w: copy step %s", common.ErrorInternal, step)
		}
		if err != nil {
			s.logger.Debug(ctx, "copy place failed", "step", step.String(), "error", err)
			return nil, err
		}
		step = next
	}
	return &st.place, nil
}

func (s *SyncService) copyReadSource(ctx context.Context, st *copyState) (copyStep, error) {
	req := st.req
	if req.SourceOwnerID != req.CurrentUserID {
		// a member may only copy out of collections it holds
		ok, err := exists(ctx, s.store, docstore.CollectionDoc(req.CurrentUserID, req.SourceCollectionID))
		if err != nil {
			return copyDone, err
		}
		if !ok {
			return copyDone, common.ErrCollectionNotFound
		}
		src := Target{CurrentUserID: req.CurrentUserID, OwnerID: req.SourceOwnerID, CollectionID: req.SourceCollectionID}
		if err := s.authorize(ctx, src); err != nil {
			return copyDone, err
		}
	}

	src := docstore.CollectionDoc(req.SourceOwnerID, req.SourceCollectionID)
	doc, err := getDoc(ctx, s.store, src, common.ErrCollectionNotFound)
	if err != nil {
		return copyDone, err
	}
	items, ok := doc.Array("places")
	if !ok {
		return copyDone, common.ErrPlaceNotFound
	}
	raw, ok := models.FindRawPlace(items, req.PlaceID)
	if !ok {
		return copyDone, common.ErrPlaceNotFound
	}

	place, err := models.NormalizePlace(raw, timeNow())
	if err != nil {
		s.logger.Error(ctx, "source place unreadable", "path", src.String(), "place", req.PlaceID, "error", err)
		return copyDone, err
	}
	st.place = place
	return copyReadTarget, nil
}

func (s *SyncService) copyReadTarget(ctx context.Context, st *copyState) (copyStep, error) {
	req := st.req
	doc, err := getDoc(ctx, s.store, docstore.CollectionDoc(req.CurrentUserID, req.TargetCollectionID), common.ErrCollectionNotFound)
	if err != nil {
		return copyDone, err
	}
	st.target = doc

	st.targetOwner = doc.String("userId")
	if st.targetOwner == "" {
		st.targetOwner = req.CurrentUserID
	}
	if st.targetOwner == req.CurrentUserID {
		return copyIntoOwned, nil
	}
	return copyIntoShared, nil
}

func (s *SyncService) copyIntoOwned(ctx context.Context, st *copyState) (copyStep, error) {
	places, err := placesOf(st.target)
	if errors.Is(err, common.ErrNoPlacesArray) {
		places, err = nil, nil
	}
	if err != nil {
		return copyDone, err
	}
	if models.IndexOfPlace(places, st.place.PlaceID) >= 0 {
		return copyDone, common.ErrDuplicatePlace
	}

	places = append(places, st.place)
	target := docstore.CollectionDoc(st.req.CurrentUserID, st.req.TargetCollectionID)
	if err := s.store.Batch(ctx, docstore.Update(target, docstore.Field("places", places))); err != nil {
		return copyDone, err
	}
	return copyDone, nil
}

func (s *SyncService) copyIntoShared(ctx context.Context, st *copyState) (copyStep, error) {
	t := Target{
		CurrentUserID: st.req.CurrentUserID,
		OwnerID:       st.targetOwner,
		CollectionID:  st.req.TargetCollectionID,
	}
	if err := s.authorize(ctx, t); err != nil {
		return copyDone, err
	}

	owner, err := getDoc(ctx, s.store, t.ownerPath(), common.ErrCollectionNotFound)
	if err != nil {
		return copyDone, err
	}
	if items, ok := owner.Array("places"); ok {
		if _, dup := models.FindRawPlace(items, st.place.PlaceID); dup {
			return copyDone, common.ErrDuplicatePlace
		}
	}

	union := docstore.Field("places", docstore.ArrayUnion("placeId", st.place))
	if err := s.store.Batch(ctx, t.dualWrite(union)...); err != nil {
		return copyDone, err
	}
	return copyDone, nil
}

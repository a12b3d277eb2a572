package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
)

// Place is one point of interest inside a collection. PlaceID is unique
// within a single places array.
type Place struct {
	PlaceID          string    `json:"placeId"`
	Name             string    `json:"name"`
	FormattedAddress string    `json:"formattedAddress"`
	PhoneNumber      string    `json:"phoneNumber"`
	Rating           float64   `json:"rating"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Visited          bool      `json:"visited"`
	AddedAt          time.Time `json:"addedAt"`
}

// DecodePlaces decodes a stored places array.
func DecodePlaces(items []any) ([]Place, error) {
	places := make([]Place, 0, len(items))
	for i, it := range items {
		var p Place
		if err := decode(it, &p); err != nil {
			return nil, fmt.Errorf("places[%d]: %w", i, err)
		}
		places = append(places, p)
	}
	return places, nil
}

// NormalizePlace builds a clean copy of a stored place for insertion into
// another collection: numeric fields are coerced and AddedAt is reset to now.
func NormalizePlace(raw any, now time.Time) (Place, error) {
	var p Place
	if err := decode(raw, &p); err != nil {
		return Place{}, err
	}
	if p.PlaceID == "" {
		return Place{}, fmt.Errorf("%w: place without placeId", common.ErrMalformedRecord)
	}
	p.AddedAt = now.UTC()
	return p, nil
}

// IndexOfPlace returns the position of placeID in places, or -1.
func IndexOfPlace(places []Place, placeID string) int {
	for i := range places {
		if places[i].PlaceID == placeID {
			return i
		}
	}
	return -1
}

// IndexOfRawPlace returns the position of placeID in an undecoded places
// array, or -1.
func IndexOfRawPlace(items []any, placeID string) int {
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := m["placeId"].(string); id == placeID {
			return i
		}
	}
	return -1
}

// FindRawPlace locates a place by id in an undecoded places array.
func FindRawPlace(items []any, placeID string) (map[string]any, bool) {
	i := IndexOfRawPlace(items, placeID)
	if i < 0 {
		return nil, false
	}
	return items[i].(map[string]any), true
}

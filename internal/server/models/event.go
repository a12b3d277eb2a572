package models

import "time"

// EventRef is the summary of an event embedded in a collection's events array.
type EventRef struct {
	EventID         string    `json:"eventId"`
	Title           string    `json:"title"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	LocationName    string    `json:"locationName,omitempty"`
	LocationAddress string    `json:"locationAddress,omitempty"`
	Latitude        float64   `json:"latitude,omitempty"`
	Longitude       float64   `json:"longitude,omitempty"`
	OwnerUserID     string    `json:"userId"`
}

// Event is the full event document stored under users/{owner}/events.
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	LocationName    string    `json:"locationName,omitempty"`
	LocationAddress string    `json:"locationAddress,omitempty"`
	Latitude        float64   `json:"latitude,omitempty"`
	Longitude       float64   `json:"longitude,omitempty"`
	Details         string    `json:"details,omitempty"`
	ImageURLs       []string  `json:"imageURLs,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	OwnerUserID     string    `json:"userId"`
	Status          Status    `json:"status,omitempty"`
}

func DecodeEvent(doc map[string]any) (*Event, error) {
	e := &Event{}
	if err := decode(doc, e); err != nil {
		return nil, err
	}
	return e, nil
}

func DecodeEventRefs(items []any) ([]EventRef, error) {
	refs := make([]EventRef, 0, len(items))
	for _, it := range items {
		var r EventRef
		if err := decode(it, &r); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// IsActive reports whether the event is still live. Events without a status
// are active.
func (e *Event) IsActive() bool {
	return e.Status == "" || e.Status == StatusActive
}

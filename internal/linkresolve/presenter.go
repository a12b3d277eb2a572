package linkresolve

import (
	"sync"

	"github.com/dmitrijs2005/placeshare/internal/server/models"
)

// ErrorTitle is the title every failed resolution is presented with.
const ErrorTitle = "Cannot Open Link"

// Presenter receives the outcome of one resolution. Exactly one method is
// called per Resolve.
type Presenter interface {
	OnResolvedPlace(place *models.Place)
	OnResolvedCoordinate(lat, lng float64, address string)
	OnResolvedCollection(c *models.Collection)
	OnError(title, message string)
}

// Outcome names the terminal a resolution ended in.
type Outcome string

const (
	OutcomePlace      Outcome = "place"
	OutcomeCoordinate Outcome = "coordinate"
	OutcomeCollection Outcome = "collection"
	OutcomeError      Outcome = "error"
)

// Result is what a Recorder captured.
type Result struct {
	Outcome    Outcome            `json:"outcome"`
	Place      *models.Place      `json:"place,omitempty"`
	Latitude   float64            `json:"latitude,omitempty"`
	Longitude  float64            `json:"longitude,omitempty"`
	Address    string             `json:"address,omitempty"`
	Collection *models.Collection `json:"collection,omitempty"`
	Title      string             `json:"title,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// Recorder is a Presenter that keeps the outcome for callers that want a
// value rather than callbacks.
type Recorder struct {
	Result Result
	Calls  int
}

func (r *Recorder) OnResolvedPlace(place *models.Place) {
	r.Calls++
	r.Result = Result{Outcome: OutcomePlace, Place: place}
}

func (r *Recorder) OnResolvedCoordinate(lat, lng float64, address string) {
	r.Calls++
	r.Result = Result{Outcome: OutcomeCoordinate, Latitude: lat, Longitude: lng, Address: address}
}

func (r *Recorder) OnResolvedCollection(c *models.Collection) {
	r.Calls++
	r.Result = Result{Outcome: OutcomeCollection, Collection: c}
}

func (r *Recorder) OnError(title, message string) {
	r.Calls++
	r.Result = Result{Outcome: OutcomeError, Title: title, Message: message}
}

// oncePresenter drops every call after the first.
type oncePresenter struct {
	next    Presenter
	once    sync.Once
	outcome Outcome
}

func (p *oncePresenter) do(o Outcome, f func()) {
	p.once.Do(func() {
		p.outcome = o
		f()
	})
}

func (p *oncePresenter) OnResolvedPlace(place *models.Place) {
	p.do(OutcomePlace, func() { p.next.OnResolvedPlace(place) })
}

func (p *oncePresenter) OnResolvedCoordinate(lat, lng float64, address string) {
	p.do(OutcomeCoordinate, func() { p.next.OnResolvedCoordinate(lat, lng, address) })
}

func (p *oncePresenter) OnResolvedCollection(c *models.Collection) {
	p.do(OutcomeCollection, func() { p.next.OnResolvedCollection(c) })
}

func (p *oncePresenter) OnError(title, message string) {
	p.do(OutcomeError, func() { p.next.OnError(title, message) })
}

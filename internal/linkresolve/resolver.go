// Package linkresolve turns inbound links into something the app can open:
// a place, a coordinate or a shared collection.
//
// Resolution runs as a small state machine:
//
//	classify -> pass_through -> expand -> re_extract -> search -> done
//
// Any stage may finish early. App links are handled in classify, links that
// already carry a place id or coordinate finish in pass_through, short links
// are followed in expand and what is left falls back to a text search.
package linkresolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/places"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const (
	DefaultScheme    = "nose"
	DefaultCacheSize = 256
	DefaultTimeout   = 10 * time.Second
)

// DefaultShortLinkHosts are followed with HEAD requests.
var DefaultShortLinkHosts = []string{"maps.app.goo.gl", "goo.gl", "g.co"}

var knownMapHosts = []string{"google.com", "goo.gl", "g.co", "maps.apple.com", "waze.com"}

const (
	msgInvalid      = "The link is not valid."
	msgBadAppLink   = "The link is missing information needed to open it."
	msgUnrecognized = "This link does not point to a place."
	msgExpand       = "Could not resolve the shortened link."
	msgDetails      = "Could not load the place."
	msgSearch       = "No place matches this link."
)

// PlaceSearcher finds and loads places.
type PlaceSearcher interface {
	FindPredictions(ctx context.Context, query string) ([]places.Prediction, error)
	FetchDetails(ctx context.Context, placeID string) (*models.Place, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// OpenCollectionFunc opens a shared collection for the acting user.
type OpenCollectionFunc func(ctx context.Context, ownerID, collectionID string) (*models.Collection, error)

type Options struct {
	Scheme            string
	ShortLinkHosts    []string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
	// Observe is told the outcome of every resolution.
	Observe func(outcome string)
}

type Resolver struct {
	scheme   string
	expander *expander
	places   PlaceSearcher
	geocoder Geocoder
	details  *lru.Cache
	observe  func(string)
	logger   logging.Logger
}

func New(opts Options, searcher PlaceSearcher, geocoder Geocoder, logger logging.Logger) (*Resolver, error) {
	if opts.Scheme == "" {
		opts.Scheme = DefaultScheme
	}
	if opts.ShortLinkHosts == nil {
		opts.ShortLinkHosts = DefaultShortLinkHosts
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	exp, err := newExpander(opts.HTTPClient, opts.ShortLinkHosts, limiter, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	details, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		scheme:   strings.ToLower(opts.Scheme),
		expander: exp,
		places:   searcher,
		geocoder: geocoder,
		details:  details,
		observe:  opts.Observe,
		logger:   logger.With("module", "link_resolver"),
	}, nil
}

type stage int

const (
	stageClassify stage = iota
	stagePassThrough
	stageExpand
	stageReextract
	stageSearch
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageClassify:
		return "classify"
	case stagePassThrough:
		return "pass_through"
	case stageExpand:
		return "expand"
	case stageReextract:
		return "re_extract"
	case stageSearch:
		return "search"
	case stageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

type resolution struct {
	raw     string
	u       *url.URL
	open    OpenCollectionFunc
	present *oncePresenter
}

// Resolve runs the pipeline for raw and reports the outcome to p. open may
// be nil, in which case collection links are reported without loading the
// collection.
func (r *Resolver) Resolve(ctx context.Context, raw string, open OpenCollectionFunc, p Presenter) {
	res := &resolution{raw: strings.TrimSpace(raw), open: open, present: &oncePresenter{next: p}}

	st := stageClassify
	for st != stageDone {
		var next stage
		switch st {
		case stageClassify:
			next = r.classify(ctx, res)
		case stagePassThrough:
			next = r.passThrough(ctx, res)
		case stageExpand:
			next = r.expand(ctx, res)
		case stageReextract:
			next = r.reextract(ctx, res)
		case stageSearch:
			next = r.search(ctx, res)
		default:
			r.fail(ctx, res, msgInvalid)
			next = stageDone
		}
		r.logger.Debug(ctx, "link stage", "stage", st.String(), "next", next.String())
		st = next
	}

	if r.observe != nil {
		r.observe(string(res.present.outcome))
	}
}

func (r *Resolver) fail(ctx context.Context, res *resolution, message string) {
	r.logger.Info(ctx, "link not resolved", "url", res.raw, "reason", message)
	res.present.OnError(ErrorTitle, message)
}

func (r *Resolver) classify(ctx context.Context, res *resolution) stage {
	u, err := url.Parse(res.raw)
	if err != nil || u.Scheme == "" {
		r.fail(ctx, res, msgInvalid)
		return stageDone
	}
	res.u = u

	if strings.ToLower(u.Scheme) != r.scheme {
		return stagePassThrough
	}

	q := u.Query()
	switch strings.ToLower(u.Host) {
	case "collection":
		collectionID, ownerID := q.Get("collectionId"), q.Get("userId")
		if collectionID == "" || ownerID == "" {
			r.fail(ctx, res, msgBadAppLink)
			return stageDone
		}
		r.openCollection(ctx, res, ownerID, collectionID)
		return stageDone
	case "open":
		if id := q.Get("placeId"); id != "" {
			r.openPlace(ctx, res, id)
			return stageDone
		}
		if inner := q.Get("url"); inner != "" {
			iu, err := url.Parse(inner)
			if err != nil || iu.Scheme == "" || strings.EqualFold(iu.Scheme, r.scheme) {
				r.fail(ctx, res, msgInvalid)
				return stageDone
			}
			res.u = iu
			return stagePassThrough
		}
	}
	r.fail(ctx, res, msgBadAppLink)
	return stageDone
}

func (r *Resolver) passThrough(ctx context.Context, res *resolution) stage {
	if r.finish(ctx, res, Extract(res.u)) {
		return stageDone
	}
	if r.expander.isShort(res.u) {
		return stageExpand
	}
	return stageSearch
}

func (r *Resolver) expand(ctx context.Context, res *resolution) stage {
	expanded, err := r.expander.expand(ctx, res.u)
	if err != nil {
		r.logger.Warn(ctx, "short link expansion failed", "url", res.u.String(), "error", err)
		r.fail(ctx, res, msgExpand)
		return stageDone
	}
	res.u = expanded
	return stageReextract
}

func (r *Resolver) reextract(ctx context.Context, res *resolution) stage {
	if r.finish(ctx, res, Extract(res.u)) {
		return stageDone
	}
	return stageSearch
}

// search is the last resort: only map links are searched, and a query with
// no result is retried once with its last word.
func (r *Resolver) search(ctx context.Context, res *resolution) stage {
	query := SearchQuery(res.u)
	if query == "" || r.places == nil {
		r.fail(ctx, res, msgUnrecognized)
		return stageDone
	}

	preds, err := r.places.FindPredictions(ctx, query)
	if err == nil && len(preds) == 0 {
		if retry := lastToken(query); retry != "" {
			preds, err = r.places.FindPredictions(ctx, retry)
		}
	}
	if err != nil {
		r.logger.Warn(ctx, "place search failed", "query", query, "error", err)
		r.fail(ctx, res, msgSearch)
		return stageDone
	}
	if len(preds) == 0 {
		r.fail(ctx, res, msgSearch)
		return stageDone
	}
	r.openPlace(ctx, res, preds[0].PlaceID)
	return stageDone
}

// finish handles an extraction result and reports whether it was terminal.
func (r *Resolver) finish(ctx context.Context, res *resolution, t Target) bool {
	switch t.Kind {
	case KindPlace:
		r.openPlace(ctx, res, t.PlaceID)
		return true
	case KindCoordinate:
		r.openCoordinate(ctx, res, t.Lat, t.Lng)
		return true
	}
	return false
}

func (r *Resolver) openPlace(ctx context.Context, res *resolution, placeID string) {
	if v, ok := r.details.Get(placeID); ok {
		res.present.OnResolvedPlace(v.(*models.Place))
		return
	}
	if r.places == nil {
		res.present.OnResolvedPlace(&models.Place{PlaceID: placeID})
		return
	}
	p, err := r.places.FetchDetails(ctx, placeID)
	if err != nil {
		r.logger.Warn(ctx, "place details failed", "place", placeID, "error", err)
		r.fail(ctx, res, msgDetails)
		return
	}
	r.details.Add(placeID, p)
	res.present.OnResolvedPlace(p)
}

// openCoordinate always succeeds; the address is best effort.
func (r *Resolver) openCoordinate(ctx context.Context, res *resolution, lat, lng float64) {
	var address string
	if r.geocoder != nil {
		a, err := r.geocoder.ReverseGeocode(ctx, lat, lng)
		if err != nil {
			r.logger.Debug(ctx, "reverse geocode failed", "lat", lat, "lng", lng, "error", err)
		} else {
			address = a
		}
	}
	res.present.OnResolvedCoordinate(lat, lng, address)
}

func (r *Resolver) openCollection(ctx context.Context, res *resolution, ownerID, collectionID string) {
	if res.open == nil {
		res.present.OnResolvedCollection(&models.Collection{ID: collectionID, OwnerID: ownerID})
		return
	}
	c, err := res.open(ctx, ownerID, collectionID)
	if err != nil {
		r.fail(ctx, res, collectionMessage(err))
		return
	}
	res.present.OnResolvedCollection(c)
}

func collectionMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrFriendRequired):
		return "You need to be friends with the owner to join this collection."
	case errors.Is(err, common.ErrBlocked):
		return "This collection is not available."
	case errors.Is(err, common.ErrCollectionNotFound), errors.Is(err, common.ErrOwnerNotFound):
		return "This collection no longer exists."
	case errors.Is(err, common.ErrCollectionUnavailable):
		return "This collection is no longer active."
	case errors.Is(err, common.ErrUnauthenticated):
		return "Sign in to open this collection."
	}
	return "Could not open the collection."
}

func looksLikeMap(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if strings.HasPrefix(host, "maps.") || strings.Contains(strings.ToLower(u.Path), "/maps") {
		return true
	}
	for _, h := range knownMapHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

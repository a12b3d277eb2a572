package linkresolve

import (
	"net/url"
	"strconv"
	"strings"
)

// Kind tells what an extraction found.
type Kind int

const (
	KindNone Kind = iota
	KindPlace
	KindCoordinate
)

// Target is the result of extracting a URL.
type Target struct {
	Kind    Kind
	PlaceID string
	Lat     float64
	Lng     float64
}

const (
	placeIDMarker    = "!1s"
	placeIDPrefix    = "ChI"
	placeIDParameter = "place_id:"
)

// Extract looks for a place id or a coordinate in u. Place ids win over
// coordinates; a coordinate query never yields a place id.
func Extract(u *url.URL) Target {
	if u == nil {
		return Target{}
	}
	q := u.Query()

	if v := strings.TrimSpace(q.Get("q")); len(v) > len(placeIDParameter) && strings.EqualFold(v[:len(placeIDParameter)], placeIDParameter) {
		return Target{Kind: KindPlace, PlaceID: v[len(placeIDParameter):]}
	}
	if v := strings.TrimSpace(q.Get("query_place_id")); v != "" {
		return Target{Kind: KindPlace, PlaceID: v}
	}
	if id, ok := markerPlaceID(u.String()); ok {
		return Target{Kind: KindPlace, PlaceID: id}
	}

	for _, key := range []string{"q", "ll"} {
		if lat, lng, ok := parseLatLng(q.Get(key)); ok {
			return Target{Kind: KindCoordinate, Lat: lat, Lng: lng}
		}
	}
	if lat, lng, ok := atCoordinate(u.Path); ok {
		return Target{Kind: KindCoordinate, Lat: lat, Lng: lng}
	}
	return Target{}
}

// markerPlaceID finds "!1s<id>!" in map data paths. Only ids with the
// place id prefix are accepted; the marker also carries feature ids.
func markerPlaceID(s string) (string, bool) {
	for {
		i := strings.Index(s, placeIDMarker)
		if i < 0 {
			return "", false
		}
		s = s[i+len(placeIDMarker):]
		end := strings.IndexAny(s, "!?&#/")
		if end < 0 {
			end = len(s)
		}
		if id := s[:end]; strings.HasPrefix(id, placeIDPrefix) {
			if unescaped, err := url.PathUnescape(id); err == nil {
				id = unescaped
			}
			return id, true
		}
	}
}

func parseLatLng(s string) (float64, float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

// atCoordinate reads the "@lat,lng[,zoom]" path segment of map URLs.
func atCoordinate(path string) (float64, float64, bool) {
	for _, seg := range strings.Split(path, "/") {
		if !strings.HasPrefix(seg, "@") {
			continue
		}
		parts := strings.Split(seg[1:], ",")
		if len(parts) < 2 {
			continue
		}
		if lat, lng, ok := parseLatLng(parts[0] + "," + parts[1]); ok {
			return lat, lng, true
		}
	}
	return 0, 0, false
}

// SearchQuery returns the free-text query a URL carries, with "+" turned
// into spaces, or "". A q or query parameter counts on any host; a
// /place/ or /search/ path segment only on map hosts.
func SearchQuery(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	for _, key := range []string{"q", "query"} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		if _, _, ok := parseLatLng(v); ok {
			continue
		}
		if strings.HasPrefix(strings.ToLower(v), placeIDParameter) {
			continue
		}
		return normalizeQuery(v)
	}

	// "/place/<name>" only names a place on map sites
	if !looksLikeMap(u) {
		return ""
	}
	segs := strings.Split(u.EscapedPath(), "/")
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] != "place" && segs[i] != "search" {
			continue
		}
		next := segs[i+1]
		if next == "" || strings.HasPrefix(next, "@") {
			continue
		}
		next = strings.ReplaceAll(next, "+", " ")
		if unescaped, err := url.PathUnescape(next); err == nil {
			next = unescaped
		}
		return normalizeQuery(next)
	}
	return ""
}

func normalizeQuery(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "+", " ")), " ")
}

// lastToken is the retry query: the last whitespace-delimited word.
func lastToken(query string) string {
	fields := strings.Fields(query)
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-1]
}

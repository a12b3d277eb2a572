// Package places talks to the Google Places and Geocoding web services.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/server/models"
)

const (
	DefaultPlacesBaseURL  = "https://maps.googleapis.com/maps/api/place"
	DefaultGeocodeBaseURL = "https://maps.googleapis.com/maps/api/geocode"

	detailsFields = "place_id,name,formatted_address,formatted_phone_number,rating,geometry/location"
)

// ErrUpstream is returned when the API answers with a non-OK status.
var ErrUpstream = errors.New("places api error")

// Prediction is one autocomplete suggestion.
type Prediction struct {
	PlaceID string `json:"placeId"`
	Text    string `json:"text"`
}

type Options struct {
	APIKey         string
	PlacesBaseURL  string
	GeocodeBaseURL string
	HTTPClient     *http.Client
}

type Client struct {
	apiKey     string
	placesURL  string
	geocodeURL string
	http       *http.Client
	logger     logging.Logger
}

func NewClient(opts Options, logger logging.Logger) *Client {
	c := &Client{
		apiKey:     opts.APIKey,
		placesURL:  opts.PlacesBaseURL,
		geocodeURL: opts.GeocodeBaseURL,
		http:       opts.HTTPClient,
		logger:     logger.With("module", "places_client"),
	}
	if c.placesURL == "" {
		c.placesURL = DefaultPlacesBaseURL
	}
	if c.geocodeURL == "" {
		c.geocodeURL = DefaultGeocodeBaseURL
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

type apiStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (s apiStatus) err() error {
	switch s.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "NOT_FOUND":
		return common.ErrPlaceNotFound
	}
	if s.ErrorMessage != "" {
		return fmt.Errorf("%w: %s: %s", ErrUpstream, s.Status, s.ErrorMessage)
	}
	return fmt.Errorf("%w: %s", ErrUpstream, s.Status)
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	q.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %s", ErrUpstream, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}

// FindPredictions returns autocomplete suggestions for a free-text query.
// No match is an empty slice, not an error.
func (c *Client) FindPredictions(ctx context.Context, query string) ([]Prediction, error) {
	var body struct {
		apiStatus
		Predictions []struct {
			PlaceID     string `json:"place_id"`
			Description string `json:"description"`
		} `json:"predictions"`
	}
	if err := c.get(ctx, c.placesURL+"/autocomplete/json", url.Values{"input": {query}}, &body); err != nil {
		return nil, err
	}
	if err := body.err(); err != nil {
		c.logger.Warn(ctx, "autocomplete failed", "status", body.Status, "error", err)
		return nil, err
	}

	out := make([]Prediction, 0, len(body.Predictions))
	for _, p := range body.Predictions {
		if p.PlaceID == "" {
			continue
		}
		out = append(out, Prediction{PlaceID: p.PlaceID, Text: p.Description})
	}
	return out, nil
}

// FetchDetails loads the place record for placeID.
func (c *Client) FetchDetails(ctx context.Context, placeID string) (*models.Place, error) {
	var body struct {
		apiStatus
		Result *struct {
			PlaceID          string  `json:"place_id"`
			Name             string  `json:"name"`
			FormattedAddress string  `json:"formatted_address"`
			Phone            string  `json:"formatted_phone_number"`
			Rating           float64 `json:"rating"`
			Geometry         struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"result"`
	}
	q := url.Values{"place_id": {placeID}, "fields": {detailsFields}}
	if err := c.get(ctx, c.placesURL+"/details/json", q, &body); err != nil {
		return nil, err
	}
	if err := body.err(); err != nil {
		return nil, err
	}
	if body.Result == nil || body.Status == "ZERO_RESULTS" {
		return nil, common.ErrPlaceNotFound
	}

	r := body.Result
	id := r.PlaceID
	if id == "" {
		id = placeID
	}
	return &models.Place{
		PlaceID:          id,
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		PhoneNumber:      r.Phone,
		Rating:           r.Rating,
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
	}, nil
}

// ReverseGeocode returns the formatted address closest to lat,lng, or ""
// when there is none.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	var body struct {
		apiStatus
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
		} `json:"results"`
	}
	latlng := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	if err := c.get(ctx, c.geocodeURL+"/json", url.Values{"latlng": {latlng}}, &body); err != nil {
		return "", err
	}
	if err := body.err(); err != nil {
		return "", err
	}
	if len(body.Results) == 0 {
		return "", nil
	}
	return body.Results[0].FormattedAddress, nil
}

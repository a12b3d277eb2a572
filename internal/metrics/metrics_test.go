package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/v1/collections/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/collections/{id}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/collections/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/collections/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestObserveStore_Outcomes(t *testing.T) {
	assert.Equal(t, "ok", storeOutcome(nil))
	assert.Equal(t, "not_found", storeOutcome(fmt.Errorf("get: %w", common.ErrorNotFound)))
	assert.Equal(t, "error", storeOutcome(errors.New("conn reset")))

	ObserveStore("get", 5*time.Millisecond, nil)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(storeLatency), 1)
}

func TestObserveLinkOutcome(t *testing.T) {
	before := testutil.ToFloat64(linkResolutions.WithLabelValues("place"))
	ObserveLinkOutcome("place")
	assert.Equal(t, before+1, testutil.ToFloat64(linkResolutions.WithLabelValues("place")))
}

func TestHandler_ServesExposition(t *testing.T) {
	ObserveLinkOutcome("error")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "placeshare_link_resolutions_total")
}

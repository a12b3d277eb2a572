// Package metrics holds the Prometheus collectors for the HTTP API, the
// document store and the link resolver.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeshare_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placeshare_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placeshare_store_latency_seconds",
		Help:    "Histogram of document store operation latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	linkResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placeshare_link_resolutions_total",
		Help: "Deep-link resolutions by terminal outcome.",
	}, []string{"outcome"})
)

// Middleware records request count and latency labelled by chi route pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// the pattern is only complete once routing has finished
			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStore matches docstore.ObserveFunc.
func ObserveStore(op string, took time.Duration, err error) {
	storeLatency.WithLabelValues(op, storeOutcome(err)).Observe(took.Seconds())
}

// ObserveLinkOutcome counts one finished link resolution.
func ObserveLinkOutcome(outcome string) {
	linkResolutions.WithLabelValues(outcome).Inc()
}

func storeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

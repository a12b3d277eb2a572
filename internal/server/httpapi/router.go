// Package httpapi exposes the collection engine as a JSON API over chi.
// Every route under /api/v1 needs a bearer token and calls one service
// operation.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/linkresolve"
	"github.com/dmitrijs2005/placeshare/internal/logging"
	"github.com/dmitrijs2005/placeshare/internal/metrics"
	"github.com/dmitrijs2005/placeshare/internal/server/auth"
	"github.com/dmitrijs2005/placeshare/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the operations the API serves.
type Services struct {
	Sync        *services.SyncService
	Membership  *services.MembershipService
	Collections *services.CollectionService
	Loading     *services.LoadingService
	Social      *services.SocialService
	Users       *services.UserService
	Links       *linkresolve.Resolver
}

type Options struct {
	SecretKey      []byte
	MetricsEnabled bool
	// Ready reports whether the backing store answers. Nil means always ready.
	Ready func(ctx context.Context) error
}

type handler struct {
	svc    Services
	logger logging.Logger
}

// NewRouter wires all routes.
func NewRouter(opts Options, svc Services, logger logging.Logger) http.Handler {
	h := &handler{svc: svc, logger: logger.With("module", "httpapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := opts.Ready(ctx); err != nil {
				http.Error(w, "unready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.SecretKey, h.fail))

		r.Get("/me", h.profile)
		r.Put("/me", h.ensureProfile)
		r.Delete("/me", h.deleteAccount)

		r.Get("/collections", h.listCollections)
		r.Post("/collections", h.createCollection)

		r.Route("/collections/{ownerId}/{collectionId}", func(r chi.Router) {
			r.Get("/", h.getCollection)
			r.Patch("/", h.renameCollection)
			r.Delete("/", h.deleteCollection)
			r.Post("/complete", h.completeCollection)
			r.Post("/reopen", h.reopenCollection)

			r.Post("/places", h.addPlace)
			r.Delete("/places/{placeId}", h.deletePlace)
			r.Put("/places/{placeId}/visited", h.setVisited)
			r.Post("/places/{placeId}/copy", h.copyPlace)

			r.Get("/hearts", h.hearts)
			r.Patch("/hearts", h.flushHearts)

			r.Put("/icon", h.updateIcon)
			r.Post("/avatar/upload-url", h.avatarUploadURL)
			r.Put("/avatar", h.setAvatar)

			r.Get("/events", h.events)
			r.Delete("/events/{eventId}", h.deleteEvent)
			r.Post("/events/cleanup", h.cleanupEvents)
			r.Post("/events/refresh", h.refreshEvents)

			r.Get("/members", h.members)
			r.Put("/members", h.share)
			r.Get("/friends-count", h.friendsCount)
			r.Get("/share-candidates", h.shareCandidates)
			r.Post("/join", h.join)
			r.Post("/leave", h.leave)
		})

		r.Get("/friends", h.friends)
		r.Delete("/friends/{userId}", h.removeFriend)
		r.Get("/friends/requests", h.friendRequests)
		r.Post("/friends/requests", h.sendFriendRequest)
		r.Post("/friends/requests/{userId}/approve", h.approveFriendRequest)
		r.Post("/friends/requests/{userId}/reject", h.rejectFriendRequest)
		r.Delete("/friends/requests/{userId}", h.cancelFriendRequest)

		r.Get("/blocks", h.blocks)
		r.Put("/blocks/{userId}", h.block)
		r.Delete("/blocks/{userId}", h.unblock)

		r.Post("/links/resolve", h.resolveLink)
	})

	return r
}

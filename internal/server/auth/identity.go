package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/placeshare/internal/common"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// CurrentUserID returns the user id stored by the middleware. ok is false for
// signed-out requests.
func CurrentUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// FailFunc writes the response for a rejected request.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests carrying "Authorization: Bearer <jwt>".
// Requests without a valid token are handed to fail and stop there.
func Middleware(secret []byte, fail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				fail(w, r, common.ErrUnauthenticated)
				return
			}

			userID, err := GetUserIDFromToken(token, secret)
			if err != nil {
				fail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) <= len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(common.BearerPrefix):])
	return token, token != ""
}

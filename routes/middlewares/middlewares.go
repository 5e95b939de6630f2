package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/pollwise/pollwise/app"
	"github.com/pollwise/pollwise/httpx"
	"github.com/pollwise/pollwise/log"
	"github.com/pollwise/pollwise/model"
)

type contextKey string

const userIDKey contextKey = "userID"

// Authenticated middleware rejects requests without a valid bearer
// access token for an existing user, and stores the user id in the
// request context for UserID.
func Authenticated(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(app, r)
			if err != nil {
				httpx.WriteError(w, "auth.bearer", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), userIDKey, userID),
			))
		})
	}
}

// MaybeAuthenticated stores the user id when a valid bearer token is
// present, and lets the request through either way. Handlers for
// routes that anonymous surveys keep open use it together with UserID.
func MaybeAuthenticated(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(app, r)
			if err != nil {
				log.Debugf("auth.bearer.optional: %s", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), userIDKey, userID),
			))
		})
	}
}

// UserID returns the authenticated user's id, or "" when the request
// was anonymous.
func UserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

func authenticate(app app.App, r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", model.ErrUnauthenticated
	}

	userID, err := app.Tokens.Authenticate(tokenString)
	if err != nil {
		return "", err
	}

	// the subject must still exist
	if _, err := app.Users.ByID(r.Context(), userID); err != nil {
		if err == model.ErrNotFound {
			return "", model.ErrTokenInvalid
		}
		return "", err
	}
	return userID, nil
}

// Package identity provides anonymous per-device identity primitives.
//
// Learners are not authenticated; each browser gets a stable anonymous id via
// a long-lived cookie so processes can be listed per device without accounts.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"regexp"
	"time"
)

const (
	// AnonCookieName carries the anonymous user id between requests.
	AnonCookieName = "edupath_anon_id"

	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const userIDKey contextKey = iota

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a context carrying the given user id. Exposed for
// handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Middleware resolves the anonymous user id for each request, issuing a new
// cookie when none (or a malformed one) is present.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if cookie, err := r.Cookie(AnonCookieName); err == nil && anonIDPattern.MatchString(cookie.Value) {
				userID = cookie.Value
			}

			if userID == "" {
				userID = newAnonID()
				http.SetCookie(w, &http.Cookie{
					Name:     AnonCookieName,
					Value:    userID,
					Path:     "/",
					MaxAge:   int(anonCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   !isDev,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func newAnonID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived id just in case.
		return "anon_" + hex.EncodeToString([]byte(time.Now().Format("20060102150405.000000")))[:32]
	}
	return "anon_" + hex.EncodeToString(buf)
}

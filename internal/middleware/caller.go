package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/campusjobs/jobboard/internal/auth"
)

// UserIDHeader carries the id of the user a request acts as.
const UserIDHeader = "X-User-Id"

// Caller reads the user id header into the request context.
// It never rejects a request; the auth gate decides what an absent or
// malformed id means for each operation.
func Caller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := ParseCaller(r.Header.Get(UserIDHeader))
		next.ServeHTTP(w, r.WithContext(auth.ContextWithCaller(r.Context(), caller)))
	})
}

// ParseCaller converts a user id header value to a Caller.
// Non-positive or non-integer values are reported as malformed.
func ParseCaller(raw string) auth.Caller {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return auth.Anonymous
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return auth.Caller{Malformed: true}
	}
	return auth.AsUser(id)
}

package middleware

import (
	"context"
	"net/http"
)

type ctxKey string

const userKey ctxKey = "user"

// UserHeader carries the user ID asserted by the upstream identity provider.
const UserHeader = "X-User-ID"

// Identity copies the user ID from UserHeader into the request context.
// Authentication itself happens upstream; requests without the header pass
// through as anonymous.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get(UserHeader); user != "" {
			r = r.WithContext(WithUserID(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserIDFromContext(r.Context()) == "" {
			http.Error(w, "identity required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// GetUserIDFromContext extracts the user ID from ctx. Returns an empty
// string if not found.
func GetUserIDFromContext(ctx context.Context) string {
	val := ctx.Value(userKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

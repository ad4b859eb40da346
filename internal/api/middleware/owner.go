// Package middleware contains the HTTP middleware shared by the API handlers.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// OwnerHeader carries the resolved owner id. In production it is set by the
// authentication layer sitting in front of this service; this service never
// sees credentials, only the already-resolved identity.
const OwnerHeader = "X-Owner-ID"

type ownerKey struct{}

// RequireOwner rejects requests without a parseable owner id and stores the
// id in the request context for handlers to read via OwnerFromContext.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := uuid.Parse(r.Header.Get(OwnerHeader))
		if err != nil || ownerID == uuid.Nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing or invalid owner identity"}`))
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OwnerFromContext returns the owner id stored by RequireOwner, or uuid.Nil
// when the middleware did not run.
func OwnerFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ownerKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header a request ID is read from and echoed back
// under. A request arriving without one gets a fresh uuid.New() rather
// than going uncorrelated, the same role the teacher's uuid.New() plays
// when minting incident IDs in internal/storage/incidents.go.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns middleware that assigns each request a UUID (reusing
// one supplied by the caller in X-Request-ID), stamps it onto the
// response header, and attaches it to the request's context so handlers
// and logging can correlate a request across its lifetime.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the request ID stashed by RequestID, or ""
// if none was attached (e.g. in a test calling a handler directly).
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID returns a copy of ctx carrying id, for tests that need to
// exercise RequestIDFromContext without going through the middleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

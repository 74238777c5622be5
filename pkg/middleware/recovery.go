// Package middleware holds cross-cutting HTTP middleware shared by the
// corridor proxy's handlers.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Recovery returns middleware that catches panics from the wrapped handler,
// logs them with a stack trace, and responds 500 with a JSON error body
// instead of letting the connection die.
func Recovery(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(logrus.Fields{
						"panic":      rec,
						"path":       r.URL.Path,
						"method":     r.Method,
						"request_id": RequestIDFromContext(r.Context()),
						"stack":      string(debug.Stack()),
					}).Error("recovered from panic in HTTP handler")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"status": "error",
						"error":  "Internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

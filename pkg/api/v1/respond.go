package v1

import (
	"encoding/json"
	"net/http"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/corerr"
)

// successResponse is the Prometheus-shaped success envelope.
type successResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// errorResponse is the Prometheus-shaped error envelope.
type errorResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
}

func (h *Handler) respondSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(successResponse{Status: "success", Data: data}); err != nil {
		h.Log.WithError(err).Error("failed to encode success response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResponse{Status: "error", ErrorType: errorType, Error: message}); err != nil {
		h.Log.WithError(err).Error("failed to encode error response")
	}
}

// respondDataSourceError maps a corerr.Error to its HTTP status (spec.md
// §7): ConfigError -> 400, DataSourceError -> 502. CacheStoreError is
// handled by the caller (it is recoverable, never surfaced as an HTTP
// error on its own).
func (h *Handler) respondDataSourceError(w http.ResponseWriter, err error) {
	switch {
	case corerr.Is(err, corerr.KindConfig):
		h.respondError(w, http.StatusBadRequest, "bad_data", err.Error())
	case corerr.Is(err, corerr.KindDataSource):
		h.respondError(w, http.StatusBadGateway, "internal", err.Error())
	default:
		h.respondError(w, http.StatusBadGateway, "internal", err.Error())
	}
}

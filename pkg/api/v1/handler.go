// Package v1 provides the corridor proxy's HTTP API handlers: Prometheus
// wire-shape label discovery and the query_range endpoint that drives the
// full grouping/DFT/cache/anomaly pipeline. Grounded on the teacher's
// pkg/api/v1 handler style (*Handler struct holding its collaborators and
// a *logrus.Logger, RegisterRoutes(*mux.Router), swagger-style doc
// comments above exported handler methods).
package v1

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/vasiliyffedorov/corridor-proxy/internal/cacheorch"
	"github.com/vasiliyffedorov/corridor-proxy/internal/datasource"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
)

// Handler serves the corridor proxy's HTTP API.
type Handler struct {
	Orch *cacheorch.Orchestrator
	DS   *datasource.DataSource
	Cfg  *config.Config
	Log  *logrus.Logger
}

// NewHandler builds a Handler over its collaborators.
func NewHandler(orch *cacheorch.Orchestrator, ds *datasource.DataSource, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{Orch: orch, DS: ds, Cfg: cfg, Log: log}
}

// RegisterRoutes registers the corridor proxy's API routes.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/labels", h.Labels).Methods("GET")
	router.HandleFunc("/api/v1/label/{name}/values", h.LabelValues).Methods("GET")
	router.HandleFunc("/api/v1/query_range", h.QueryRange).Methods("GET")
	h.Log.Info("corridor proxy API registered: GET /api/v1/labels, /api/v1/label/{name}/values, /api/v1/query_range")
}

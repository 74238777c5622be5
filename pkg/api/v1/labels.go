package v1

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// Labels handles GET /api/v1/labels.
// @Summary List known label names
// @Description The corridor proxy's DataSource only discovers metric names, so the only label name it reports is __name__.
// @Tags discovery
// @Produce json
// @Success 200 {object} successResponse
// @Router /api/v1/labels [get]
func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, []string{"__name__"})
}

// LabelValues handles GET /api/v1/label/{name}/values.
// @Summary List a label's values
// @Description Only __name__ is supported; its values are the upstream DataSource's distinct metric names.
// @Tags discovery
// @Produce json
// @Param name path string true "label name, only __name__ is supported"
// @Success 200 {object} successResponse
// @Failure 404 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /api/v1/label/{name}/values [get]
func (h *Handler) LabelValues(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name != "__name__" {
		h.respondError(w, http.StatusNotFound, "not_found", fmt.Sprintf("label %q is not discoverable by this proxy", name))
		return
	}
	if !h.DS.IsAvailable() {
		h.respondError(w, http.StatusBadGateway, "internal", "datasource not configured")
		return
	}

	values, err := h.DS.ListMetrics(r.Context())
	if err != nil {
		h.respondDataSourceError(w, err)
		return
	}
	h.respondSuccess(w, values)
}

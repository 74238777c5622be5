package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliyffedorov/corridor-proxy/internal/cacheorch"
	"github.com/vasiliyffedorov/corridor-proxy/internal/datasource"
	"github.com/vasiliyffedorov/corridor-proxy/internal/persistcache"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

func testCfg(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Port:        8080,
		MetricsPort: 9090,
		LogLevel:    "info",
		HTTPTimeout: 30 * time.Second,
	}
	cfg.Corridor.Step = 60
	cfg.Corridor.WindowSize = 5
	cfg.Corridor.MarginPercent = 5
	cfg.Corridor.MaxHarmonics = 3
	cfg.Corridor.MinAmplitude = 0.01
	cfg.Corridor.MinDataPoints = 10
	cfg.Corridor.MinCorridorWidthFactor = 0.1
	cfg.Corridor.HistoricalOffsetDays = 0
	cfg.Corridor.HistoricalPeriodDays = 1
	cfg.Corridor.DefaultPercentiles = config.DefaultPercentiles{Duration: 90, Size: 90, DurationMultiplier: 1, SizeMultiplier: 1}
	cfg.Cache.DatabasePath = filepath.Join(t.TempDir(), "cache.db")
	cfg.Cache.Percentiles = []int{50, 90}
	cfg.Cache.MaxRebuildCount = 100
	cfg.Cache.MaxTTLSeconds = 86400
	cfg.Timeout.MaxMetrics = 10
	return cfg
}

// promLikeServer fakes enough of Prometheus + Grafana's HTTP surface for
// label discovery and query_range to exercise the full handler stack.
func promLikeServer(t *testing.T) *httptest.Server {
	t.Helper()
	serveMux := http.NewServeMux()
	serveMux.HandleFunc("/api/v1/label/__name__/values", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   []string{"up", "http_requests_total"},
		})
	})
	serveMux.HandleFunc("/api/v1/query_range", func(w http.ResponseWriter, r *http.Request) {
		values := make([][2]interface{}, 0, 200)
		for i := 0; i < 200; i++ {
			values = append(values, [2]interface{}{float64(i * 60), fmt.Sprintf("%d", i%5+1)})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"resultType": "matrix",
				"result": []map[string]interface{}{
					{
						"metric": map[string]string{"job": "demo"},
						"values": values,
					},
				},
			},
		})
	})
	return httptest.NewServer(serveMux)
}

func newTestHandler(t *testing.T) (*Handler, *httptest.Server) {
	t.Helper()
	cfg := testCfg(t)

	cache, err := persistcache.Open(cfg.Cache.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	log := logrus.New()
	log.SetOutput(testWriter{t})

	server := promLikeServer(t)
	t.Cleanup(server.Close)

	ds := datasource.New(datasource.Options{BaseURL: server.URL, Timeout: 5 * time.Second}, log)
	orch := cacheorch.New(cache, log)

	return NewHandler(orch, ds, cfg, log), server
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestLabels_ReturnsNameOnly(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/labels", nil)
	rec := httptest.NewRecorder()

	h.Labels(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body successResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, []interface{}{"__name__"}, body.Data)
}

func TestLabelValues_UnsupportedNameReturns404(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/label/job/values", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLabelValues_NameDelegatesToDataSource(t *testing.T) {
	h, _ := newTestHandler(t)
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/label/__name__/values", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body successResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data, ok := body.Data.([]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "up")
}

func TestQueryRange_MissingQueryReturnsBadRequest(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/query_range?start=0&end=100", nil)
	rec := httptest.NewRecorder()

	h.QueryRange(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRange_EndToEndReturnsCorridorAnnotatedMatrix(t *testing.T) {
	h, _ := newTestHandler(t)
	url := "/api/v1/query_range?query=up&start=0&end=600&step=60"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()

	h.QueryRange(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body successResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
}

func TestQueryRange_WithOverrideChangesConfigHash(t *testing.T) {
	h, _ := newTestHandler(t)
	url := "/api/v1/query_range?query=up%23corrdor_params.margin_percent%3D10&start=0&end=600&step=60"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()

	h.QueryRange(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	entry, ok, err := h.Orch.Cache.Load("up", models.LabelSet{"job": "demo"}.Fingerprint())
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, config.ConfigHash(h.Cfg, nil), entry.ConfigHash)
}

func TestQueryRange_InvalidStartReturnsBadRequest(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/query_range?query=up&start=not-a-time&end=100", nil)
	rec := httptest.NewRecorder()

	h.QueryRange(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

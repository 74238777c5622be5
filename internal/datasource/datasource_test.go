package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyBaseURLReturnsNil(t *testing.T) {
	ds := New(Options{}, nil)
	assert.Nil(t, ds)
	assert.False(t, ds.IsAvailable())
}

func TestListMetrics_ParsesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/v1/label/__name__/values", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   []string{"http_requests_total", "up"},
		})
	}))
	defer srv.Close()

	ds := New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	require.True(t, ds.IsAvailable())

	names, err := ds.ListMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"http_requests_total", "up"}, names)

	// Second call within cacheTTL must not hit the server again.
	_, err = ds.ListMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestListMetrics_UpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "error",
			"error":  "bad query",
		})
	}))
	defer srv.Close()

	ds := New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	_, err := ds.ListMetrics(context.Background())
	assert.Error(t, err)
}

func TestQueryRange_FlattensMatrixWithSyntheticName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query_range", r.URL.Path)
		assert.Equal(t, "up", r.URL.Query().Get("query"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"resultType": "matrix",
				"result": []map[string]interface{}{
					{
						"metric": map[string]string{"job": "demo"},
						"values": [][2]interface{}{
							{float64(0), "1"},
							{float64(60), "2.5"},
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	ds := New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	samples, err := ds.QueryRange(context.Background(), "up", 0, 60, 60)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, int64(0), samples[0].T)
	assert.Equal(t, 1.0, samples[0].V)
	assert.Equal(t, "up", samples[0].Labels["__name__"])
	assert.Equal(t, "demo", samples[0].Labels["job"])

	assert.Equal(t, int64(60), samples[1].T)
	assert.Equal(t, 2.5, samples[1].V)
}

func TestListPanelMetrics_ExtractsExprsAndURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dashboards/uid/abc123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"dashboard": map[string]interface{}{
				"title": "Demo",
				"panels": []map[string]interface{}{
					{
						"title": "Request Rate",
						"id":    1,
						"targets": []map[string]interface{}{
							{"expr": "rate(http_requests_total[5m])"},
						},
					},
					{
						"title":   "Empty Panel",
						"id":      2,
						"targets": []map[string]interface{}{{"expr": ""}},
					},
				},
			},
			"meta": map[string]interface{}{"slug": "demo"},
		})
	}))
	defer srv.Close()

	ds := New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	metrics, err := ds.ListPanelMetrics(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "Request Rate", metrics[0].PanelTitle)
	assert.Equal(t, "rate(http_requests_total[5m])", metrics[0].Expr)
	assert.Contains(t, metrics[0].PanelURL, "viewPanel=1")
}

func TestBearerTransport_InjectsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "data": []string{}})
	}))
	defer srv.Close()

	ds := New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second, BearerToken: "s3cr3t"}, nil)
	_, err := ds.ListMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cr3t", gotAuth)
}

// Package datasource implements the abstract DataSource of spec.md §6
// against a real Grafana-fronted Prometheus API: listMetrics() and
// queryRange(metric, start, end, step), plus a Grafana dashboard-panel
// discovery helper that feeds DataGrouper in a real deployment. Grounded
// on the teacher's internal/integrations/prometheus_client.go (HTTP client
// construction, queryInstant/queryRange split, short-TTL response cache).
package datasource

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vasiliyffedorov/corridor-proxy/internal/grouping"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/corerr"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// cachedNames holds a short-TTL cached response for discovery endpoints
// (metric names, label values) that otherwise get hit on every panel
// refresh.
type cachedNames struct {
	values    []string
	expiresAt time.Time
}

// DataSource queries an upstream Grafana/Prometheus instance for metric
// discovery and range data.
type DataSource struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger

	cacheMu  sync.RWMutex
	cache    map[string]cachedNames
	cacheTTL time.Duration
}

// Options configures the upstream HTTP client.
type Options struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	BearerToken        string
	CacheTTL           time.Duration
}

// New builds a DataSource against opts.BaseURL. Returns nil if BaseURL is
// empty, matching the teacher's NewPrometheusClient "not configured" guard.
func New(opts Options, log *logrus.Logger) *DataSource {
	if opts.BaseURL == "" {
		return nil
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}, //nolint:gosec // operator opt-in via config, not a default
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	ds := &DataSource{
		baseURL:  opts.BaseURL,
		log:      log,
		cache:    make(map[string]cachedNames),
		cacheTTL: cacheTTL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}
	if opts.BearerToken != "" {
		ds.httpClient.Transport = &bearerTransport{base: transport, token: opts.BearerToken}
	}
	return ds
}

type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// IsAvailable reports whether the DataSource was configured with an
// upstream URL.
func (d *DataSource) IsAvailable() bool { return d != nil && d.baseURL != "" }

// Close releases idle HTTP connections.
func (d *DataSource) Close() {
	if d != nil && d.httpClient != nil {
		d.httpClient.CloseIdleConnections()
	}
}

type labelValuesResponse struct {
	Status string   `json:"status"`
	Data   []string `json:"data"`
	Error  string   `json:"error,omitempty"`
}

// ListMetrics implements spec.md §6's listMetrics(): distinct values of
// __name__, cached for cacheTTL to avoid hammering Grafana on every panel
// refresh.
func (d *DataSource) ListMetrics(ctx context.Context) ([]string, error) {
	if !d.IsAvailable() {
		return nil, corerr.DataSource("datasource not configured", nil)
	}

	const cacheKey = "__name__values"
	if cached, ok := d.getCached(cacheKey); ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/api/v1/label/__name__/values", d.baseURL)
	body, err := d.get(ctx, endpoint)
	if err != nil {
		return nil, corerr.DataSource("listing metrics", err)
	}

	var resp labelValuesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, corerr.DataSource("parsing label values response", err)
	}
	if resp.Status != "success" {
		return nil, corerr.DataSource(fmt.Sprintf("upstream error: %s", resp.Error), nil)
	}

	sort.Strings(resp.Data)
	d.setCached(cacheKey, resp.Data)
	return resp.Data, nil
}

type rangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Values [][2]interface{}  `json:"values"`
		} `json:"result"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// QueryRange implements spec.md §6's queryRange(metric,start,end,step):
// fetches the upstream Prometheus-shaped matrix and flattens it into one
// RawSample per (series, timestamp), each carrying a copy of that series'
// label map with a synthetic __name__ set to metric.
func (d *DataSource) QueryRange(ctx context.Context, metric string, start, end, step int64) ([]grouping.RawSample, error) {
	if !d.IsAvailable() {
		return nil, corerr.DataSource("datasource not configured", nil)
	}

	endpoint := fmt.Sprintf("%s/api/v1/query_range", d.baseURL)
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, corerr.DataSource("parsing query_range URL", err)
	}
	q := url.Values{}
	q.Set("query", metric)
	q.Set("start", fmt.Sprintf("%d", start))
	q.Set("end", fmt.Sprintf("%d", end))
	q.Set("step", fmt.Sprintf("%d", step))
	reqURL.RawQuery = q.Encode()

	body, err := d.get(ctx, reqURL.String())
	if err != nil {
		return nil, corerr.DataSource(fmt.Sprintf("querying range for %s", metric), err)
	}

	var resp rangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, corerr.DataSource("parsing query_range response", err)
	}
	if resp.Status != "success" {
		return nil, corerr.DataSource(fmt.Sprintf("upstream error: %s", resp.Error), nil)
	}

	var out []grouping.RawSample
	for _, series := range resp.Data.Result {
		labels := make(models.LabelSet, len(series.Metric)+1)
		for k, v := range series.Metric {
			labels[k] = v
		}
		labels["__name__"] = metric

		for _, pair := range series.Values {
			t, v, ok := parseValuePair(pair)
			if !ok {
				d.warnf("skipping malformed sample for %s", metric)
				continue
			}
			out = append(out, grouping.RawSample{T: t, V: v, Labels: labels})
		}
	}
	return out, nil
}

func parseValuePair(pair [2]interface{}) (t int64, v float64, ok bool) {
	ts, ok := pair[0].(float64)
	if !ok {
		return 0, 0, false
	}
	valueStr, ok := pair[1].(string)
	if !ok {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(valueStr, "%f", &v); err != nil {
		return 0, 0, false
	}
	return int64(ts), v, true
}

func (d *DataSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func (d *DataSource) getCached(key string) ([]string, bool) {
	d.cacheMu.RLock()
	defer d.cacheMu.RUnlock()

	cached, exists := d.cache[key]
	if !exists || time.Now().After(cached.expiresAt) {
		return nil, false
	}
	return cached.values, true
}

func (d *DataSource) setCached(key string, values []string) {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	d.cache[key] = cachedNames{values: values, expiresAt: time.Now().Add(d.cacheTTL)}
}

func (d *DataSource) warnf(format string, args ...interface{}) {
	if d.log == nil {
		return
	}
	d.log.Warnf(format, args...)
}

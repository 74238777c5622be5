package v1

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vasiliyffedorov/corridor-proxy/internal/cacheorch"
	"github.com/vasiliyffedorov/corridor-proxy/internal/trend"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// seriesResult pairs one label-group's build output with its labels, the
// unit of work the worker pool produces per series.
type seriesResult struct {
	labels models.LabelSet
	build  cacheorch.BuildResult
}

// matrixSeries is one series entry of the formatted response: Prometheus'
// own matrix shape (metric + values) extended with the corridor bounds
// and concern scalars the core computes (spec.md §1 non-goal: the
// response formatter lives only at this boundary).
type matrixSeries struct {
	Metric          map[string]string  `json:"metric"`
	Values          [][2]string        `json:"values"`
	CorridorUpper   [][2]string        `json:"corridor_upper,omitempty"`
	CorridorLower   [][2]string        `json:"corridor_lower,omitempty"`
	CurrentStats    models.AnomalyReport `json:"current_stats"`
	HistoricalStats models.AnomalyReport `json:"historical_stats"`
	Concern         models.ConcernScores `json:"concern"`
	ConcernSum      models.ConcernScores `json:"concern_sum"`
	DFTRebuildCount int                `json:"dft_rebuild_count"`
	Trend           trend.Projection   `json:"trend"`
}

// matrixResponse is the top-level data payload of a successful
// query_range response.
type matrixResponse struct {
	ResultType string         `json:"resultType"`
	Result     []matrixSeries `json:"result"`
}

func formatMatrix(results []seriesResult) matrixResponse {
	out := matrixResponse{ResultType: "matrix", Result: make([]matrixSeries, 0, len(results))}
	for _, r := range results {
		metric := make(map[string]string, len(r.labels))
		for k, v := range r.labels {
			metric[k] = v
		}

		out.Result = append(out.Result, matrixSeries{
			Metric:          metric,
			Values:          formatSamples(r.build.Original),
			CorridorUpper:   formatSamples(r.build.Upper),
			CorridorLower:   formatSamples(r.build.Lower),
			CurrentStats:    r.build.CurrentStats,
			HistoricalStats: r.build.HistoricalStats,
			Concern:         r.build.Concern,
			ConcernSum:      r.build.ConcernSum,
			DFTRebuildCount: r.build.DFTRebuildCount,
			Trend:           r.build.Trend,
		})
	}
	return out
}

func formatSamples(samples []models.Sample) [][2]string {
	if samples == nil {
		return nil
	}
	out := make([][2]string, len(samples))
	for i, s := range samples {
		out[i] = [2]string{
			strconv.FormatInt(s.T, 10),
			strconv.FormatFloat(s.V, 'f', -1, 64),
		}
	}
	return out
}

func parseTimeParam(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("required")
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(f), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("not a unix timestamp or RFC3339 time: %q", raw)
}

func parseStepParam(raw string, fallback int) (int64, error) {
	if raw == "" {
		return int64(fallback), nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return int64(d.Seconds()), nil
	}
	return 0, fmt.Errorf("not an integer or duration: %q", raw)
}

// Package grouping splits a DataSource's flat sample stream into per-series
// groups and resamples each group onto a uniform time grid (spec.md §4.1).
package grouping

import (
	"fmt"
	"sort"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/corerr"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// RawSample is one observation as handed back by a DataSource, before it is
// split by label set.
type RawSample struct {
	T      int64
	V      float64
	Labels models.LabelSet
}

// Group splits rawSamples by label fingerprint (dropping "__name__", which
// never belongs in a LabelSet), sorting each group's samples by time.
func Group(rawSamples []RawSample) map[string]*models.Series {
	out := make(map[string]*models.Series)
	for _, rs := range rawSamples {
		labels := cloneWithoutName(rs.Labels)
		fp := labels.Fingerprint()

		series, ok := out[fp]
		if !ok {
			series = &models.Series{Labels: labels}
			out[fp] = series
		}
		series.Samples = append(series.Samples, models.Sample{T: rs.T, V: rs.V})
	}

	for _, series := range out {
		sort.Slice(series.Samples, func(i, j int) bool {
			return series.Samples[i].T < series.Samples[j].T
		})
	}
	return out
}

func cloneWithoutName(labels models.LabelSet) models.LabelSet {
	out := make(models.LabelSet, len(labels))
	for k, v := range labels {
		if k == "__name__" {
			continue
		}
		out[k] = v
	}
	return out
}

// Interpolate resamples samples (assumed sortable, not necessarily sorted)
// onto the uniform grid {start, start+step, ..., <=end}. Each grid point is
// linearly interpolated between its two bracketing samples; a point outside
// the data range takes the nearest-side value; an empty input yields zeros
// across the grid.
func Interpolate(samples []models.Sample, start, end, step int64) ([]models.Sample, error) {
	if step < 1 {
		return nil, corerr.Config(fmt.Sprintf("step must be >= 1, got %d", step), nil)
	}
	if end < start {
		return nil, corerr.Config(fmt.Sprintf("end (%d) must be >= start (%d)", end, start), nil)
	}

	sorted := make([]models.Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	n := int((end-start)/step) + 1
	out := make([]models.Sample, 0, n)

	for t := start; t <= end; t += step {
		out = append(out, models.Sample{T: t, V: valueAt(sorted, t)})
	}
	return out, nil
}

func valueAt(sorted []models.Sample, t int64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if t <= sorted[0].T {
		return sorted[0].V
	}
	if t >= sorted[len(sorted)-1].T {
		return sorted[len(sorted)-1].V
	}

	// Find the first sample with T >= t; the bracket is [i-1, i].
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].T >= t })
	if sorted[i].T == t {
		return sorted[i].V
	}
	lo, hi := sorted[i-1], sorted[i]
	frac := float64(t-lo.T) / float64(hi.T-lo.T)
	return lo.V + frac*(hi.V-lo.V)
}

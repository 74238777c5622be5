// Package anomaly implements the anomaly statistics and integral "concern"
// scalars derived from comparing a series to its corridor (spec.md §4.5).
package anomaly

import "sort"

// Percentile drops non-positive values, sorts the rest, and linearly
// interpolates at (p/100)*(n-1). Returns 0 on an empty set.
func Percentile(values []float64, p float64) float64 {
	filtered := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return 0
	}
	sort.Float64s(filtered)

	pos := (p / 100) * float64(len(filtered)-1)
	lo := int(pos)
	if lo >= len(filtered)-1 {
		return filtered[len(filtered)-1]
	}
	frac := pos - float64(lo)
	return filtered[lo] + frac*(filtered[lo+1]-filtered[lo])
}

// Summarize replaces a raw array with a fixed-length percentile summary:
// the raw values in their given order padded to len(percentiles) with 0.00
// if the raw set is already that size or smaller, otherwise rounded
// percentile values at each requested percentile.
func Summarize(raw []float64, percentiles []int) []float64 {
	out := make([]float64, len(percentiles))
	if len(raw) <= len(percentiles) {
		copy(out, raw)
		for i := len(raw); i < len(out); i++ {
			out[i] = 0.00
		}
		return out
	}
	for i, p := range percentiles {
		out[i] = round2(Percentile(raw, float64(p)))
	}
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

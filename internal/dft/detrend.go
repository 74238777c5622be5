// Package dft implements the DFT-based corridor baseline: linear
// detrending, harmonic extraction by contribution score, and restoration
// over an arbitrary horizon (spec.md §4.3). The regression math follows
// the teacher's pkg/capacity/trending.go LinearRegression shape.
package dft

import "github.com/vasiliyffedorov/corridor-proxy/pkg/models"

// Detrend fits y = slope*t + intercept by ordinary least squares over
// (t_i, y_i) and returns both the trend line and the detrended residuals
// (y_i - slope*t_i - intercept). The fit itself is computed against t
// rebased to seconds-since-samples[0].T: real epoch timestamps (~1.7e9)
// square to ~1e18, which loses precision in the sums of squares long
// before the rebased values do. The reported TrendLine is converted back
// to absolute time so callers (Restore, persistence) keep working in
// epoch seconds.
func Detrend(samples []models.Sample) (models.TrendLine, []float64) {
	n := float64(len(samples))
	if n == 0 {
		return models.TrendLine{}, nil
	}

	t0 := samples[0].T

	var sumT, sumY float64
	for _, s := range samples {
		sumT += float64(s.T - t0)
		sumY += s.V
	}
	meanT := sumT / n
	meanY := sumY / n

	var numerator, denominator float64
	for _, s := range samples {
		t := float64(s.T - t0)
		numerator += t * s.V
		denominator += t * t
	}
	numerator -= n * meanT * meanY
	denominator -= n * meanT * meanT

	var slope, interceptRebased float64
	if abs(denominator) < 1e-10 {
		slope, interceptRebased = 0, meanY
	} else {
		slope = numerator / denominator
		interceptRebased = meanY - slope*meanT
	}

	// y = slope*(t-t0) + interceptRebased == slope*t + intercept, so
	// intercept = interceptRebased - slope*t0.
	intercept := interceptRebased - slope*float64(t0)

	residuals := make([]float64, len(samples))
	for i, s := range samples {
		residuals[i] = s.V - slope*float64(s.T) - intercept
	}
	return models.TrendLine{Slope: slope, Intercept: intercept}, residuals
}

// RebaseCommonTrend replaces each group's slope with the arithmetic mean of
// all slopes and rebases each intercept so the boundary mean is preserved
// (intercept = meanY - commonSlope*meanT), per the use_common_trend flag in
// spec.md §4.3. meanT/meanY are the per-group means used to fit trends[i].
func RebaseCommonTrend(trends []models.TrendLine, meanTs, meanYs []float64) []models.TrendLine {
	if len(trends) == 0 {
		return trends
	}

	var sumSlope float64
	for _, tr := range trends {
		sumSlope += tr.Slope
	}
	commonSlope := sumSlope / float64(len(trends))

	out := make([]models.TrendLine, len(trends))
	for i := range trends {
		out[i] = models.TrendLine{
			Slope:     commonSlope,
			Intercept: meanYs[i] - commonSlope*meanTs[i],
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package dft

import (
	"math"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// Params are the corridor_params.* knobs the DFT step consumes.
type Params struct {
	MaxHarmonics int
	MinAmplitude float64
}

// BuildCurve detrends samples, transforms the residuals, and selects the
// harmonics to keep, returning a fully restorable CorridorCurve. samples
// must be uniformly spaced on the grid they were built from.
func BuildCurve(samples []models.Sample, p Params) models.CorridorCurve {
	if len(samples) == 0 {
		return models.CorridorCurve{}
	}

	trend, residuals := Detrend(samples)
	bins := transform(residuals)

	dataStart := samples[0].T
	dataEnd := samples[len(samples)-1].T
	totalDuration := float64(dataEnd - dataStart)

	coeffs := selectHarmonics(bins, totalDuration, len(samples), p.MaxHarmonics, p.MinAmplitude)
	return models.CorridorCurve{Coeffs: coeffs, Trend: trend}
}

// BuildCurvePair builds the upper and lower curves together so
// use_common_trend can replace both trend lines with their shared slope
// before the residuals are transformed (spec.md §4.3) — rebasing after the
// fact would leave stale coefficients fit against the old residuals.
func BuildCurvePair(upperSamples, lowerSamples []models.Sample, p Params, useCommonTrend bool) (upper, lower models.CorridorCurve) {
	upperTrend, upperResiduals := Detrend(upperSamples)
	lowerTrend, lowerResiduals := Detrend(lowerSamples)

	if useCommonTrend && len(upperSamples) > 0 && len(lowerSamples) > 0 {
		upperMeanT, upperMeanY := Means(upperSamples)
		lowerMeanT, lowerMeanY := Means(lowerSamples)
		rebased := RebaseCommonTrend(
			[]models.TrendLine{upperTrend, lowerTrend},
			[]float64{upperMeanT, lowerMeanT},
			[]float64{upperMeanY, lowerMeanY},
		)
		upperTrend, lowerTrend = rebased[0], rebased[1]

		upperResiduals = residualsAgainst(upperSamples, upperTrend)
		lowerResiduals = residualsAgainst(lowerSamples, lowerTrend)
	}

	upper = curveFromResiduals(upperSamples, upperTrend, upperResiduals, p)
	lower = curveFromResiduals(lowerSamples, lowerTrend, lowerResiduals, p)
	return upper, lower
}

func residualsAgainst(samples []models.Sample, trend models.TrendLine) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.V - trend.Slope*float64(s.T) - trend.Intercept
	}
	return out
}

func curveFromResiduals(samples []models.Sample, trend models.TrendLine, residuals []float64, p Params) models.CorridorCurve {
	if len(samples) == 0 {
		return models.CorridorCurve{}
	}
	bins := transform(residuals)
	dataStart := samples[0].T
	dataEnd := samples[len(samples)-1].T
	totalDuration := float64(dataEnd - dataStart)

	coeffs := selectHarmonics(bins, totalDuration, len(samples), p.MaxHarmonics, p.MinAmplitude)
	return models.CorridorCurve{Coeffs: coeffs, Trend: trend}
}

// Restore evaluates a CorridorCurve over [start, end] at step s. theta is
// computed against [dataStart, dataStart+totalDuration] so harmonics stay
// continuous across the boundary of the historical window when projecting
// into a live window beyond it (spec.md §4.3).
func Restore(curve models.CorridorCurve, dataStart, totalDuration, start, end, step int64) []models.Sample {
	if step < 1 || end < start {
		return nil
	}

	n := int((end-start)/step) + 1
	out := make([]models.Sample, 0, n)

	for t := start; t <= end; t += step {
		var theta float64
		if totalDuration != 0 {
			theta = float64(t-dataStart) / float64(totalDuration)
		}

		y := 0.0
		for _, h := range curve.Coeffs {
			y += h.Amplitude * math.Cos(2*math.Pi*float64(h.K)*theta+h.Phase)
		}
		y += curve.Trend.Slope*float64(t) + curve.Trend.Intercept

		out = append(out, models.Sample{T: t, V: y})
	}
	return out
}

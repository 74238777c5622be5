package anomaly

import "math"

// DefaultPercentiles is the corrdor_params.default_percentiles.* group
// (spec.md §6) used to pick the historical percentile and the live
// duration/size multipliers for the concern scalars.
type DefaultPercentiles struct {
	Duration           float64
	Size               float64
	DurationMultiplier float64
	SizeMultiplier     float64
}

// Concern computes the per-direction integral concern scalar (spec.md
// §4.5): a ratio of live anomaly "area" to historical anomaly "area",
// clamped to [0,1] via min(10,ratio)/10.
func Concern(historyDurations, historySizes, currentDurations, currentSizes []float64, dp DefaultPercentiles) float64 {
	histDur := Percentile(historyDurations, dp.Duration)
	histSz := Percentile(historySizes, dp.Size)
	if histDur == 0 || histSz == 0 {
		return 0
	}
	histArea := histDur * histSz

	curDur := maxOf(currentDurations) * dp.DurationMultiplier
	curSz := maxOf(currentSizes) * dp.SizeMultiplier
	if curDur == 0 || curSz == 0 {
		return 0
	}

	ratio := math.Exp(curDur * curSz / histArea)
	return math.Min(10, ratio) / 10
}

// ConcernSum computes the "concern sum" variant: the live contribution sums
// every current anomaly's (duration*mult_d)*(size*mult_s) instead of using
// only the maxima, and the historical duration percentile is first capped
// per adjustPercentile when windowSize is smaller than the raw percentile.
func ConcernSum(historyDurations, historySizes, currentDurations, currentSizes []float64, dp DefaultPercentiles, windowSize float64) float64 {
	histDur := adjustPercentile(historyDurations, dp.Duration, windowSize)
	histSz := Percentile(historySizes, dp.Size)
	if histDur == 0 || histSz == 0 {
		return 0
	}
	histArea := histDur * histSz

	var curContribution float64
	n := len(currentDurations)
	if len(currentSizes) < n {
		n = len(currentSizes)
	}
	for i := 0; i < n; i++ {
		curContribution += (currentDurations[i] * dp.DurationMultiplier) * (currentSizes[i] * dp.SizeMultiplier)
	}
	if curContribution == 0 {
		return 0
	}

	ratio := math.Exp(curContribution / histArea)
	return math.Min(10, ratio) / 10
}

// adjustPercentile caps each historical duration at min(histDur,
// windowSize/2) before recomputing the percentile, when windowSize is
// smaller than the uncapped historical duration percentile.
func adjustPercentile(durations []float64, p, windowSize float64) float64 {
	histDur := Percentile(durations, p)
	if windowSize >= histDur {
		return histDur
	}

	capped := make([]float64, len(durations))
	ceiling := windowSize / 2
	for i, d := range durations {
		if d > ceiling {
			capped[i] = ceiling
		} else {
			capped[i] = d
		}
		if capped[i] > histDur {
			capped[i] = histDur
		}
	}
	return Percentile(capped, p)
}

func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

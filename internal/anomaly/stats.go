package anomaly

import (
	"sort"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// CalculateAnomalyStats walks samples against the upper/lower corridor and
// returns the above/below/combined report (spec.md §4.5). When raw is
// false, durations/sizes are replaced by fixed-length percentile summaries
// using percentiles (the cache.percentiles config list).
func CalculateAnomalyStats(samples, upper, lower []models.Sample, percentiles []int, raw bool) models.AnomalyReport {
	above := directionStats(samples, upper, models.DirectionAbove)
	below := directionStats(samples, lower, models.DirectionBelow)

	if raw {
		sort.Float64s(above.Durations)
		sort.Float64s(above.Sizes)
		sort.Float64s(below.Durations)
		sort.Float64s(below.Sizes)
	} else {
		above.Durations = Summarize(above.Durations, percentiles)
		above.Sizes = Summarize(above.Sizes, percentiles)
		below.Durations = Summarize(below.Durations, percentiles)
		below.Sizes = Summarize(below.Sizes, percentiles)
	}

	return models.AnomalyReport{
		Above: above,
		Below: below,
		Combined: models.CombinedStats{
			TimeOutsidePercent: above.TimeOutsidePercent + below.TimeOutsidePercent,
			AnomalyCount:       above.AnomalyCount + below.AnomalyCount,
		},
	}
}

func directionStats(samples, boundary []models.Sample, direction models.Direction) models.AnomalyStats {
	stats := models.AnomalyStats{Direction: direction}
	if len(samples) == 0 {
		return stats
	}

	sorted := make([]models.Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	var durations, sizes []float64
	var totalTimeOutside float64
	var inAnomaly bool
	var anomalyStart int64
	var lastDuration float64

	for i, s := range sorted {
		b := boundaryAt(boundary, s.T)
		anomalous := isAnomalous(direction, s.V, b)

		if anomalous {
			if !inAnomaly {
				if i == 0 {
					anomalyStart = s.T
				} else {
					anomalyStart = sorted[i-1].T
				}
				inAnomaly = true
			}
			duration := float64(s.T - anomalyStart)
			size := round2(sizeOf(s.V, b))
			durations = append(durations, duration)
			sizes = append(sizes, size)
			stats.AnomalyCount++
			lastDuration = duration
		} else if inAnomaly {
			totalTimeOutside += lastDuration
			inAnomaly = false
		}
	}
	if inAnomaly {
		totalTimeOutside += lastDuration
	}

	span := float64(sorted[len(sorted)-1].T - sorted[0].T)
	if span > 0 {
		stats.TimeOutsidePercent = 100 * totalTimeOutside / span
	}
	stats.Durations = durations
	stats.Sizes = sizes
	return stats
}

func isAnomalous(direction models.Direction, v, boundary float64) bool {
	if direction == models.DirectionAbove {
		return v > boundary
	}
	return v < boundary
}

func sizeOf(v, boundary float64) float64 {
	denom := boundary
	if denom < 1 {
		denom = 1
	}
	diff := v - boundary
	if diff < 0 {
		diff = -diff
	}
	return diff / denom * 100
}

// boundaryAt linearly interpolates the boundary series at t, matching
// grouping.Interpolate's nearest-side-outside-range behavior.
func boundaryAt(boundary []models.Sample, t int64) float64 {
	if len(boundary) == 0 {
		return 0
	}
	if t <= boundary[0].T {
		return boundary[0].V
	}
	if t >= boundary[len(boundary)-1].T {
		return boundary[len(boundary)-1].V
	}

	i := sort.Search(len(boundary), func(i int) bool { return boundary[i].T >= t })
	if boundary[i].T == t {
		return boundary[i].V
	}
	lo, hi := boundary[i-1], boundary[i]
	frac := float64(t-lo.T) / float64(hi.T-lo.T)
	return lo.V + frac*(hi.V-lo.V)
}

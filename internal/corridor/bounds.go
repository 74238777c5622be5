// Package corridor builds the raw upper/lower envelope of a historical
// series (spec.md §4.2, CorridorBoundsBuilder) and enforces a minimum
// spread between the two curves by piecewise-linear repair (spec.md §4.4,
// CorridorWidthEnsurer).
package corridor

import (
	"fmt"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/corerr"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// BuildBounds slides a window of windowSize (centered, clipped at the
// edges) over samples and returns parallel upper/lower envelopes of the
// same length.
func BuildBounds(samples []models.Sample, windowSize int, marginPercent float64) (upper, lower []models.Sample, err error) {
	if windowSize <= 0 {
		return nil, nil, corerr.Config(fmt.Sprintf("window_size must be positive, got %d", windowSize), nil)
	}
	if marginPercent <= 0 {
		return nil, nil, corerr.Config(fmt.Sprintf("margin_percent must be positive, got %v", marginPercent), nil)
	}

	n := len(samples)
	upper = make([]models.Sample, n)
	lower = make([]models.Sample, n)
	half := windowSize / 2

	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > n-1 {
			hi = n - 1
		}

		sum, max, min := 0.0, samples[lo].V, samples[lo].V
		for j := lo; j <= hi; j++ {
			v := samples[j].V
			sum += v
			if v > max {
				max = v
			}
			if v < min {
				min = v
			}
		}
		avg := sum / float64(hi-lo+1)
		margin := avg * marginPercent / 100

		upper[i] = models.Sample{T: samples[i].T, V: max + margin}
		lower[i] = models.Sample{T: samples[i].T, V: min - margin}
	}
	return upper, lower, nil
}

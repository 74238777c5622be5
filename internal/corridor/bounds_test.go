package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

func flatSeries(values []float64) []models.Sample {
	out := make([]models.Sample, len(values))
	for i, v := range values {
		out[i] = models.Sample{T: int64(i * 10), V: v}
	}
	return out
}

func TestBuildBounds_SameLengthAsInput(t *testing.T) {
	samples := flatSeries([]float64{1, 2, 3, 4, 5, 6, 7})
	upper, lower, err := BuildBounds(samples, 3, 10)
	require.NoError(t, err)
	assert.Len(t, upper, len(samples))
	assert.Len(t, lower, len(samples))
}

func TestBuildBounds_UpperAlwaysAtOrAboveLower(t *testing.T) {
	samples := flatSeries([]float64{5, 1, 9, 3, 7, 2, 8})
	upper, lower, err := BuildBounds(samples, 5, 5)
	require.NoError(t, err)
	for i := range upper {
		assert.GreaterOrEqual(t, upper[i].V, lower[i].V)
	}
}

func TestBuildBounds_MonotoneInMarginPercent(t *testing.T) {
	samples := flatSeries([]float64{1, 5, 2, 8, 3, 9, 4})

	upperSmall, lowerSmall, err := BuildBounds(samples, 3, 5)
	require.NoError(t, err)
	upperBig, lowerBig, err := BuildBounds(samples, 3, 20)
	require.NoError(t, err)

	for i := range upperSmall {
		assert.GreaterOrEqual(t, upperBig[i].V, upperSmall[i].V)
		assert.LessOrEqual(t, lowerBig[i].V, lowerSmall[i].V)
	}
}

func TestBuildBounds_RejectsInvalidParams(t *testing.T) {
	samples := flatSeries([]float64{1, 2, 3})

	_, _, err := BuildBounds(samples, 0, 5)
	assert.Error(t, err)

	_, _, err = BuildBounds(samples, 3, 0)
	assert.Error(t, err)
}

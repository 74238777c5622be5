package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestConcern_RangeBounds is property 8 from spec.md §8: concern scalars
// stay in [0,1] regardless of input magnitude.
func TestConcern_RangeBounds(t *testing.T) {
	dp := DefaultPercentiles{Duration: 90, Size: 90, DurationMultiplier: 1, SizeMultiplier: 1}

	cases := []struct {
		histDur, histSz []float64
		curDur, curSz   []float64
	}{
		{[]float64{10, 20, 30}, []float64{5, 10, 15}, []float64{1000000}, []float64{1000000}},
		{[]float64{10, 20, 30}, []float64{5, 10, 15}, []float64{0.001}, []float64{0.001}},
		{nil, nil, []float64{10}, []float64{10}},
		{[]float64{10}, []float64{10}, nil, nil},
	}

	for _, c := range cases {
		v := Concern(c.histDur, c.histSz, c.curDur, c.curSz, dp)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestConcern_ZeroWhenHistoryEmpty(t *testing.T) {
	dp := DefaultPercentiles{Duration: 90, Size: 90, DurationMultiplier: 1, SizeMultiplier: 1}
	v := Concern(nil, nil, []float64{10}, []float64{10}, dp)
	assert.Equal(t, 0.0, v)
}

func TestConcernSum_RangeBounds(t *testing.T) {
	dp := DefaultPercentiles{Duration: 90, Size: 90, DurationMultiplier: 1, SizeMultiplier: 1}
	v := ConcernSum(
		[]float64{10, 20, 30}, []float64{5, 10, 15},
		[]float64{100, 200, 300}, []float64{50, 60, 70},
		dp, 15,
	)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestAdjustPercentile_CapsWhenWindowSmaller(t *testing.T) {
	durations := []float64{100, 200, 300}
	uncapped := Percentile(durations, 90)
	adjusted := adjustPercentile(durations, 90, 10) // windowSize=10 << histDur
	assert.LessOrEqual(t, adjusted, uncapped)
}

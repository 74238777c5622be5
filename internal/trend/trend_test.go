package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

func risingSeries(n int, stepSeconds int64, start, slopePerStep float64) []models.Sample {
	out := make([]models.Sample, n)
	for i := 0; i < n; i++ {
		out[i] = models.Sample{T: int64(i) * stepSeconds, V: start + slopePerStep*float64(i)}
	}
	return out
}

func TestLinearRegression_PerfectLineHasUnitRSquared(t *testing.T) {
	samples := risingSeries(10, 3600, 100, 1)
	slope, _, rSquared := LinearRegression(samples)
	assert.Greater(t, slope, 0.0)
	assert.InDelta(t, 1.0, rSquared, 1e-9)
}

func TestLinearRegression_TooFewSamples(t *testing.T) {
	slope, intercept, rSquared := LinearRegression([]models.Sample{{T: 0, V: 1}})
	assert.Zero(t, slope)
	assert.Zero(t, intercept)
	assert.Zero(t, rSquared)
}

func TestAnalyze_IncreasingSeries(t *testing.T) {
	samples := risingSeries(200, 3600, 100, 0.5)
	p := Analyze(samples)
	assert.Equal(t, Increasing, p.Direction)
	assert.Greater(t, p.DailyChangePercent, 0.0)
	// Daily and weekly are each rounded to 2 decimals, so 7*daily can drift
	// from weekly by up to 7*0.005 + 0.005.
	assert.InDelta(t, p.DailyChangePercent*7, p.WeeklyChangePercent, 0.041)
	assert.GreaterOrEqual(t, p.Confidence, 0.0)
	assert.LessOrEqual(t, p.Confidence, 1.0)
}

func TestAnalyze_FlatSeriesIsStable(t *testing.T) {
	samples := risingSeries(50, 3600, 100, 0)
	p := Analyze(samples)
	assert.Equal(t, Stable, p.Direction)
	assert.InDelta(t, 0, p.DailyChangePercent, 0.01)
}

func TestAnalyze_TooFewSamplesReturnsStableZero(t *testing.T) {
	p := Analyze([]models.Sample{{T: 0, V: 5}})
	assert.Equal(t, Stable, p.Direction)
	assert.Zero(t, p.DailyChangePercent)
	assert.Zero(t, p.Confidence)
}

func TestConfidence_GrowsWithMoreDenseLongerData(t *testing.T) {
	short := risingSeries(5, 3600, 100, 1)
	long := risingSeries(168, 3600, 100, 1)

	_, _, rShort := LinearRegression(short)
	_, _, rLong := LinearRegression(long)

	cShort := Confidence(short, rShort)
	cLong := Confidence(long, rLong)
	require.GreaterOrEqual(t, cLong, cShort)
}

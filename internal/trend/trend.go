// Package trend reports a capacity-style trend projection alongside the
// DFT corridor: daily/weekly percent change of a series' linear trend and
// a confidence score. Generalizes the teacher's pkg/capacity trending
// math (fit a line, score confidence by sample count + R² + span) from a
// CPU/memory pair to a single metric series.
package trend

import (
	"math"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// Direction summarizes whether a series is trending up, down, or flat.
type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
	Stable     Direction = "stable"
)

// directionThreshold is the daily-change-percent magnitude below which a
// trend is reported as stable, matching the teacher's 0.5% cutoff.
const directionThreshold = 0.5

// maxConfidencePoints and maxConfidenceSpan bound the sample-count and
// time-span confidence factors, matching the teacher's 7-day/hourly
// reference window.
const (
	maxConfidencePoints = 168.0
	maxConfidenceSpan   = 7 * 24 * 60 * 60 // seconds
)

// Projection is the reported trend alongside a corridor.
type Projection struct {
	DailyChangePercent  float64   `json:"daily_change_percent"`
	WeeklyChangePercent float64   `json:"weekly_change_percent"`
	Direction           Direction `json:"direction"`
	Confidence          float64   `json:"confidence"`
}

// LinearRegression fits y = slope*x + intercept over samples, x measured
// in days since the first sample's timestamp, and returns the
// coefficient of determination alongside slope and intercept.
func LinearRegression(samples []models.Sample) (slope, intercept, rSquared float64) {
	n := float64(len(samples))
	if n < 2 {
		return 0, 0, 0
	}

	startT := samples[0].T
	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s.T-startT) / 86400.0
		y[i] = s.V
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	numerator := sumXY - n*meanX*meanY
	denominator := sumX2 - n*meanX*meanX
	if denominator == 0 {
		return 0, meanY, 0
	}
	slope = numerator / denominator
	intercept = meanY - slope*meanX

	var ssRes, ssTot float64
	for i := range x {
		predicted := slope*x[i] + intercept
		ssRes += (y[i] - predicted) * (y[i] - predicted)
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}
	if ssTot == 0 {
		rSquared = 1.0
	} else {
		rSquared = 1.0 - ssRes/ssTot
	}
	return slope, intercept, rSquared
}

// DailyChangePercent reports the linear trend's slope as a percentage of
// the series' average value.
func DailyChangePercent(samples []models.Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	slope, _, _ := LinearRegression(samples)

	var sum float64
	for _, s := range samples {
		sum += s.V
	}
	avg := sum / float64(len(samples))
	if avg == 0 {
		return 0
	}
	return (slope / avg) * 100
}

// DetermineDirection classifies a daily change percentage.
func DetermineDirection(dailyChangePercent float64) Direction {
	if dailyChangePercent > directionThreshold {
		return Increasing
	}
	if dailyChangePercent < -directionThreshold {
		return Decreasing
	}
	return Stable
}

// Confidence scores trend quality from sample count, fit quality, and
// time span, each capped at a 7-day/hourly-cadence reference window.
func Confidence(samples []models.Sample, rSquared float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	pointsFactor := math.Min(float64(len(samples))/maxConfidencePoints, 1.0) * 0.4
	rSquaredFactor := math.Max(0, rSquared) * 0.4

	span := samples[len(samples)-1].T - samples[0].T
	spanFactor := math.Min(float64(span)/maxConfidenceSpan, 1.0) * 0.2

	return math.Round((pointsFactor+rSquaredFactor+spanFactor)*100) / 100
}

// Analyze fits a linear trend over samples and reports the daily/weekly
// percent change, direction, and confidence.
func Analyze(samples []models.Sample) Projection {
	if len(samples) < 2 {
		return Projection{Direction: Stable}
	}

	_, _, rSquared := LinearRegression(samples)
	daily := DailyChangePercent(samples)

	return Projection{
		DailyChangePercent:  math.Round(daily*100) / 100,
		WeeklyChangePercent: math.Round(daily*7*100) / 100,
		Direction:           DetermineDirection(daily),
		Confidence:          Confidence(samples, rSquared),
	}
}

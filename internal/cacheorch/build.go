package cacheorch

import (
	"github.com/vasiliyffedorov/corridor-proxy/internal/anomaly"
	"github.com/vasiliyffedorov/corridor-proxy/internal/corridor"
	"github.com/vasiliyffedorov/corridor-proxy/internal/dft"
	"github.com/vasiliyffedorov/corridor-proxy/internal/trend"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// BuildResult is the per-series response row: the original live samples,
// the restored (and width-ensured) corridor, current-window anomaly
// stats, historical anomaly stats from the cache entry, and both integral
// concern scalars (spec.md §4.5): Concern uses the live maxima per
// direction, ConcernSum sums every live anomaly's contribution.
type BuildResult struct {
	Original        []models.Sample
	Upper           []models.Sample
	Lower           []models.Sample
	CurrentStats    models.AnomalyReport
	HistoricalStats models.AnomalyReport
	Concern         models.ConcernScores
	ConcernSum      models.ConcernScores
	DFTRebuildCount int
	Trend           trend.Projection
}

// Build restores a fresh cache entry's corridor over [start,end], enforces
// the minimum width, and computes current-window anomaly stats and
// concern scalars against liveSamples (spec.md §2 data flow: "C2.restore
// on requested window → C4 → C5 (current-window stats) → integral
// concerns"). Current-window stats are returned raw (ascending arrays),
// distinct from the percentile-summarized shape persisted to the cache.
func Build(entry *models.CacheEntry, liveSamples []models.Sample, start, end int64, cfg *config.Config) BuildResult {
	step := entry.Step
	restoredUpper := dft.Restore(entry.DFTUpper, entry.DataStart, float64(entry.TotalDuration), start, end, step)
	restoredLower := dft.Restore(entry.DFTLower, entry.DataStart, float64(entry.TotalDuration), start, end, step)

	upper, lower := corridor.EnsureWidth(
		restoredUpper, restoredLower,
		entry.DFTUpper.DC(), entry.DFTLower.DC(),
		cfg.Corridor.MinCorridorWidthFactor,
	)

	currentStats := anomaly.CalculateAnomalyStats(liveSamples, upper, lower, cfg.Cache.Percentiles, true)

	dp := anomaly.DefaultPercentiles{
		Duration:           cfg.Corridor.DefaultPercentiles.Duration,
		Size:               cfg.Corridor.DefaultPercentiles.Size,
		DurationMultiplier: cfg.Corridor.DefaultPercentiles.DurationMultiplier,
		SizeMultiplier:     cfg.Corridor.DefaultPercentiles.SizeMultiplier,
	}

	concern := models.ConcernScores{
		Above: anomaly.Concern(
			entry.HistoricalStats.Above.Durations, entry.HistoricalStats.Above.Sizes,
			currentStats.Above.Durations, currentStats.Above.Sizes,
			dp,
		),
		Below: anomaly.Concern(
			entry.HistoricalStats.Below.Durations, entry.HistoricalStats.Below.Sizes,
			currentStats.Below.Durations, currentStats.Below.Sizes,
			dp,
		),
	}
	concernSum := models.ConcernScores{
		Above: anomaly.ConcernSum(
			entry.HistoricalStats.Above.Durations, entry.HistoricalStats.Above.Sizes,
			currentStats.Above.Durations, currentStats.Above.Sizes,
			dp, float64(cfg.Corridor.WindowSize),
		),
		Below: anomaly.ConcernSum(
			entry.HistoricalStats.Below.Durations, entry.HistoricalStats.Below.Sizes,
			currentStats.Below.Durations, currentStats.Below.Sizes,
			dp, float64(cfg.Corridor.WindowSize),
		),
	}

	return BuildResult{
		Original:        liveSamples,
		Upper:           upper,
		Lower:           lower,
		CurrentStats:    currentStats,
		HistoricalStats: entry.HistoricalStats,
		Concern:         concern,
		ConcernSum:      concernSum,
		DFTRebuildCount: entry.DFTRebuildCount,
		Trend:           trend.Analyze(liveSamples),
	}
}

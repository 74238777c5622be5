// Package cacheorch is the StatsCacheOrchestrator (spec.md §4.6/§2 C6): it
// decides recompute vs. reuse, builds sticky placeholders for sparse
// series, and glues DataGrouper/CorridorBoundsBuilder/DFTProcessor/
// AnomalyDetector together on recompute.
package cacheorch

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vasiliyffedorov/corridor-proxy/internal/anomaly"
	"github.com/vasiliyffedorov/corridor-proxy/internal/corridor"
	"github.com/vasiliyffedorov/corridor-proxy/internal/dft"
	"github.com/vasiliyffedorov/corridor-proxy/internal/grouping"
	"github.com/vasiliyffedorov/corridor-proxy/internal/persistcache"
	"github.com/vasiliyffedorov/corridor-proxy/internal/trend"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// Orchestrator ties the persistent cache to the corridor pipeline.
type Orchestrator struct {
	Cache  *persistcache.PersistentCache
	Logger *logrus.Logger
}

// New builds an Orchestrator over an already-opened cache.
func New(cache *persistcache.PersistentCache, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{Cache: cache, Logger: logger}
}

// RecalculateStats implements spec.md §4.6 steps 1-5: reuse a sticky
// placeholder unchanged, otherwise build one for sparse history, otherwise
// run the full bounds/DFT/anomaly pipeline over historySamples and persist
// the result.
func (o *Orchestrator) RecalculateStats(
	query, fingerprint string,
	labels models.LabelSet,
	historySamples []models.Sample,
	cfg *config.Config,
	configHash string,
	now time.Time,
) (*models.CacheEntry, error) {
	cached, ok, err := o.Cache.Load(query, fingerprint)
	if err != nil {
		return nil, err
	}
	if ok && cached.IsUnusedMetric() {
		return cached, nil
	}

	step := int64(cfg.Corridor.Step)
	dataStart, dataEnd := dataRange(historySamples, now, step)

	if len(historySamples) < cfg.Corridor.MinDataPoints {
		placeholder := models.NewPlaceholder(dataStart, step, labels, now)
		placeholder.ConfigHash = configHash
		saveErr := o.Cache.Save(query, fingerprint, placeholder, configHash)
		return placeholder, saveErr
	}

	interpolated, err := grouping.Interpolate(historySamples, dataStart, dataEnd, step)
	if err != nil {
		return nil, err
	}

	upperHist, lowerHist, err := corridor.BuildBounds(interpolated, cfg.Corridor.WindowSize, cfg.Corridor.MarginPercent)
	if err != nil {
		return nil, err
	}

	dftParams := dft.Params{MaxHarmonics: cfg.Corridor.MaxHarmonics, MinAmplitude: cfg.Corridor.MinAmplitude}
	upperCurve, lowerCurve := dft.BuildCurvePair(upperHist, lowerHist, dftParams, cfg.Corridor.UseCommonTrend)

	totalDuration := dataEnd - dataStart
	restoredUpper := dft.Restore(upperCurve, dataStart, float64(totalDuration), dataStart, dataEnd, step)
	restoredLower := dft.Restore(lowerCurve, dataStart, float64(totalDuration), dataStart, dataEnd, step)

	historicalStats := anomaly.CalculateAnomalyStats(interpolated, restoredUpper, restoredLower, cfg.Cache.Percentiles, false)

	rebuildCount := 1
	if ok {
		rebuildCount = cached.DFTRebuildCount + 1
	}
	if rebuildCount > cfg.Cache.MaxRebuildCount {
		o.warnf("dft_rebuild_count %d for %s exceeds cache.max_rebuild_count %d", rebuildCount, query, cfg.Cache.MaxRebuildCount)
	}

	entry := &models.CacheEntry{
		DataStart:       dataStart,
		Step:            step,
		TotalDuration:   totalDuration,
		DFTRebuildCount: rebuildCount,
		Labels:          labels,
		CreatedAt:       now,
		ConfigHash:      configHash,
		HistoricalStats: historicalStats,
		DFTUpper:        upperCurve,
		DFTLower:        lowerCurve,
		LastAccessed:    now,
		IsPlaceholder:   false,
	}

	if err := o.Cache.Save(query, fingerprint, entry, configHash); err != nil {
		// Recoverable (spec.md §7 CacheStoreError): the caller proceeds with
		// the freshly computed entry and a later request retries the save.
		o.warnf("persisting cache entry for %s/%s failed: %v", query, fingerprint, err)
		return entry, err
	}
	return entry, nil
}

// ProcessInsufficientData builds the response row for a placeholder entry
// (spec.md §4.6): original samples pass through untouched, corridors are
// empty, current-window stats are zero, and the stored historical stats and
// rebuild count come from the placeholder.
func ProcessInsufficientData(placeholder *models.CacheEntry, liveSamples []models.Sample) BuildResult {
	return BuildResult{
		Original:        liveSamples,
		Upper:           nil,
		Lower:           nil,
		CurrentStats:    models.AnomalyReport{},
		HistoricalStats: placeholder.HistoricalStats,
		DFTRebuildCount: placeholder.DFTRebuildCount,
		Trend:           trend.Analyze(liveSamples),
	}
}

func dataRange(samples []models.Sample, now time.Time, step int64) (start, end int64) {
	if len(samples) == 0 {
		return now.Unix(), now.Unix()
	}
	start, end = samples[0].T, samples[0].T
	for _, s := range samples {
		if s.T < start {
			start = s.T
		}
		if s.T > end {
			end = s.T
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

func (o *Orchestrator) warnf(format string, args ...interface{}) {
	if o.Logger == nil {
		return
	}
	o.Logger.Warnf(format, args...)
}

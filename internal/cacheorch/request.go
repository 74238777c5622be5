package cacheorch

import (
	"time"

	"github.com/vasiliyffedorov/corridor-proxy/internal/telemetry"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/config"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// Process is the per-group request entry point (spec.md §2's full data
// flow): decide recompute-vs-reuse via PersistentCache.ShouldRecreate,
// recompute when stale, otherwise reuse the cached entry and coarse-touch
// its access time, then build the response row for the requested window.
func (o *Orchestrator) Process(
	query, fingerprint string,
	labels models.LabelSet,
	historySamples, liveSamples []models.Sample,
	start, end int64,
	cfg *config.Config,
	configHash string,
	now time.Time,
) (BuildResult, error) {
	recreate, err := o.Cache.ShouldRecreate(query, fingerprint, configHash, int64(cfg.Cache.MaxTTLSeconds), now)
	if err != nil {
		return BuildResult{}, err
	}

	var entry *models.CacheEntry
	if recreate {
		entry, err = o.RecalculateStats(query, fingerprint, labels, historySamples, cfg, configHash, now)
		if err != nil && entry == nil {
			return BuildResult{}, err
		}
		if entry.IsPlaceholder {
			telemetry.RecordCacheResult(telemetry.CachePlaceholder)
		} else {
			telemetry.RecordDFTRebuild()
			telemetry.RecordCacheResult(telemetry.CacheMiss)
		}
	} else {
		cached, ok, loadErr := o.Cache.Load(query, fingerprint)
		if loadErr != nil {
			return BuildResult{}, loadErr
		}
		if !ok {
			// Lost between ShouldRecreate and Load (e.g. concurrent
			// cleanup); fall back to a full recompute.
			entry, err = o.RecalculateStats(query, fingerprint, labels, historySamples, cfg, configHash, now)
			if err != nil && entry == nil {
				return BuildResult{}, err
			}
			telemetry.RecordDFTRebuild()
			telemetry.RecordCacheResult(telemetry.CacheMiss)
		} else {
			entry = cached
			if entry.IsPlaceholder {
				telemetry.RecordCacheResult(telemetry.CachePlaceholder)
			} else {
				telemetry.RecordCacheResult(telemetry.CacheHit)
			}
			if touchErr := o.Cache.Touch(query, fingerprint, now); touchErr != nil {
				o.warnf("touching access time for %s/%s failed: %v", query, fingerprint, touchErr)
			}
		}
	}

	if entry.IsPlaceholder {
		return ProcessInsufficientData(entry, liveSamples), nil
	}
	return Build(entry, liveSamples, start, end, cfg), nil
}

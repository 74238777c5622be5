package config

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"strings"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/canonjson"
)

// ConfigHash returns the stable fingerprint of the effective config used to
// build a cache entry (spec.md §3 "Config hash"): the dotted parameter
// values plus any per-query overrides, with every top-level key whose name
// begins with "save" stripped, serialized via canonjson (sorted keys,
// 5-decimal float rounding), then MD5.
func ConfigHash(cfg *Config, overrides map[string]interface{}) string {
	m := effectiveMap(cfg)
	for k, v := range overrides {
		m[k] = v
	}
	for k := range m {
		if strings.HasPrefix(k, "save") {
			delete(m, k)
		}
	}

	b, err := canonjson.Marshal(m)
	if err != nil {
		// canonjson only fails on unsupported types; the map above is
		// built entirely from primitives, so this is unreachable.
		panic(err)
	}
	sum := md5.Sum(b) //nolint:gosec // fingerprint, not a security boundary
	return hex.EncodeToString(sum[:])
}

func effectiveMap(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"corrdor_params.step":                      cfg.Corridor.Step,
		"corrdor_params.window_size":                cfg.Corridor.WindowSize,
		"corrdor_params.margin_percent":              cfg.Corridor.MarginPercent,
		"corrdor_params.max_harmonics":               cfg.Corridor.MaxHarmonics,
		"corrdor_params.min_amplitude":               cfg.Corridor.MinAmplitude,
		"corrdor_params.min_data_points":             cfg.Corridor.MinDataPoints,
		"corrdor_params.min_corridor_width_factor":   cfg.Corridor.MinCorridorWidthFactor,
		"corrdor_params.use_common_trend":            cfg.Corridor.UseCommonTrend,
		"corrdor_params.historical_offset_days":      cfg.Corridor.HistoricalOffsetDays,
		"corrdor_params.historical_period_days":      cfg.Corridor.HistoricalPeriodDays,
		"corrdor_params.default_percentiles.duration":            cfg.Corridor.DefaultPercentiles.Duration,
		"corrdor_params.default_percentiles.size":                cfg.Corridor.DefaultPercentiles.Size,
		"corrdor_params.default_percentiles.duration_multiplier": cfg.Corridor.DefaultPercentiles.DurationMultiplier,
		"corrdor_params.default_percentiles.size_multiplier":     cfg.Corridor.DefaultPercentiles.SizeMultiplier,
		"cache.database.max_ttl":    cfg.Cache.MaxTTLSeconds,
		"cache.max_rebuild_count":   cfg.Cache.MaxRebuildCount,
		"cache.percentiles":         cfg.Cache.Percentiles,
		"scaleCorridor":             cfg.ScaleCorridor,
		"timeout.max_metrics":       cfg.Timeout.MaxMetrics,
	}
}

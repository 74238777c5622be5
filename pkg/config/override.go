package config

import (
	"strconv"
	"strings"
)

// ParseOverrides splits a query string on the first "#" and parses the
// remainder as a ";"-separated list of "dotted.key=value" pairs (spec.md
// §6). It returns the bare query (everything before "#") and the parsed
// overrides; queries without "#" return no overrides.
func ParseOverrides(rawQuery string) (query string, overrides map[string]interface{}) {
	idx := strings.IndexByte(rawQuery, '#')
	if idx < 0 {
		return rawQuery, nil
	}

	query = rawQuery[:idx]
	overrides = make(map[string]interface{})
	for _, pair := range strings.Split(rawQuery[idx+1:], ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		overrides[strings.TrimSpace(k)] = parseOverrideValue(strings.TrimSpace(v))
	}
	return query, overrides
}

func parseOverrideValue(v string) interface{} {
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	}
	if strings.Contains(v, ",") {
		parts := strings.Split(v, ",")
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// WithOverrides returns a copy of c with the dotted override keys that
// applyOverride recognises applied. Other keys, including cache.percentiles,
// cache.database.path and the corrdor_params.default_percentiles.* group,
// leave the copy unchanged. The receiver is never mutated (spec.md §6
// invariant).
func (c *Config) WithOverrides(overrides map[string]interface{}) *Config {
	cp := *c
	for k, v := range overrides {
		applyOverride(&cp, k, v)
	}
	return &cp
}

func applyOverride(c *Config, key string, v interface{}) {
	switch key {
	case "corrdor_params.step":
		if n, ok := asInt(v); ok {
			c.Corridor.Step = n
		}
	case "corrdor_params.window_size":
		if n, ok := asInt(v); ok {
			c.Corridor.WindowSize = n
		}
	case "corrdor_params.margin_percent":
		if f, ok := asFloat(v); ok {
			c.Corridor.MarginPercent = f
		}
	case "corrdor_params.max_harmonics":
		if n, ok := asInt(v); ok {
			c.Corridor.MaxHarmonics = n
		}
	case "corrdor_params.min_amplitude":
		if f, ok := asFloat(v); ok {
			c.Corridor.MinAmplitude = f
		}
	case "corrdor_params.min_data_points":
		if n, ok := asInt(v); ok {
			c.Corridor.MinDataPoints = n
		}
	case "corrdor_params.min_corridor_width_factor":
		if f, ok := asFloat(v); ok {
			c.Corridor.MinCorridorWidthFactor = f
		}
	case "corrdor_params.use_common_trend":
		if b, ok := v.(bool); ok {
			c.Corridor.UseCommonTrend = b
		}
	case "corrdor_params.historical_offset_days":
		if n, ok := asInt(v); ok {
			c.Corridor.HistoricalOffsetDays = n
		}
	case "corrdor_params.historical_period_days":
		if n, ok := asInt(v); ok {
			c.Corridor.HistoricalPeriodDays = n
		}
	case "cache.database.max_ttl":
		if n, ok := asInt(v); ok {
			c.Cache.MaxTTLSeconds = n
		}
	case "cache.max_rebuild_count":
		if n, ok := asInt(v); ok {
			c.Cache.MaxRebuildCount = n
		}
	case "scaleCorridor":
		if b, ok := v.(bool); ok {
			c.ScaleCorridor = b
		}
	case "timeout.max_metrics":
		if n, ok := asInt(v); ok {
			c.Timeout.MaxMetrics = n
		}
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

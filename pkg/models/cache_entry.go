package models

import "time"

// UnusedMetricLabel is the sentinel label key/value that marks a
// CacheEntry as a sticky placeholder (spec.md §3, "Placeholder").
const UnusedMetricLabel = "unused_metric"

// CacheEntry is the stored state for one (query, fingerprint) pair: the
// corridor coefficients, trend lines, historical anomaly stats, and the
// bookkeeping needed to decide whether a recompute is due.
type CacheEntry struct {
	Query             string        `json:"-"`
	Fingerprint       string        `json:"-"`
	DataStart         int64         `json:"data_start"`
	Step              int64         `json:"step"`
	TotalDuration     int64         `json:"total_duration"`
	DFTRebuildCount   int           `json:"dft_rebuild_count"`
	Labels            LabelSet      `json:"labels"`
	CreatedAt         time.Time     `json:"created_at"`
	ConfigHash        string        `json:"config_hash"`
	HistoricalStats   AnomalyReport `json:"historical_stats"`
	DFTUpper          CorridorCurve `json:"dft_upper"`
	DFTLower          CorridorCurve `json:"dft_lower"`
	LastAccessed      time.Time     `json:"last_accessed"`
	IsPlaceholder     bool          `json:"is_placeholder"`
}

// IsUnusedMetric reports whether this entry is a sticky placeholder, per
// the labels.unused_metric="true" sentinel.
func (e *CacheEntry) IsUnusedMetric() bool {
	return e != nil && e.Labels != nil && e.Labels[UnusedMetricLabel] == "true"
}

// NewPlaceholder builds the sticky placeholder entry stored when history is
// too sparse to fit a corridor (spec.md §4.6, step 3).
func NewPlaceholder(dataStart, step int64, labels LabelSet, now time.Time) *CacheEntry {
	merged := make(LabelSet, len(labels)+1)
	for k, v := range labels {
		merged[k] = v
	}
	merged[UnusedMetricLabel] = "true"

	return &CacheEntry{
		DataStart:       dataStart,
		Step:            step,
		TotalDuration:   0,
		DFTRebuildCount: 0,
		Labels:          merged,
		CreatedAt:       now,
		HistoricalStats: AnomalyReport{},
		DFTUpper:        CorridorCurve{},
		DFTLower:        CorridorCurve{},
		LastAccessed:    now,
		IsPlaceholder:   true,
	}
}

package models

// Direction is which side of the corridor a statistic describes.
type Direction string

// Valid directions.
const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// AnomalyStats carries the per-direction statistics produced by the
// anomaly detector. When CalculateAnomalyStats runs with raw=true,
// Durations/Sizes are ascending sorted raw arrays; otherwise they are
// fixed-length percentile summaries.
type AnomalyStats struct {
	TimeOutsidePercent float64   `json:"time_outside_percent"`
	AnomalyCount       int       `json:"anomaly_count"`
	Durations          []float64 `json:"durations"`
	Sizes              []float64 `json:"sizes"`
	Direction          Direction `json:"direction,omitempty"`
}

// CombinedStats is the direction-agnostic summary: only the two scalars,
// per spec.md §3, which may sum above+below and therefore exceed natural
// bounds (0-100%, 0-N) in degenerate corridors. Preserved intentionally.
type CombinedStats struct {
	TimeOutsidePercent float64 `json:"time_outside_percent"`
	AnomalyCount       int     `json:"anomaly_count"`
}

// AnomalyReport is the full result of calculateAnomalyStats: above, below,
// and the combined summary.
type AnomalyReport struct {
	Above    AnomalyStats  `json:"above"`
	Below    AnomalyStats  `json:"below"`
	Combined CombinedStats `json:"combined"`
}

// ConcernScores are the two integral "concern" scalars derived by
// comparing the current window's anomalies to the historical envelope.
type ConcernScores struct {
	Above float64 `json:"above"`
	Below float64 `json:"below"`
}

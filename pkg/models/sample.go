// Package models holds the typed data model shared across the corridor
// pipeline: samples, label sets, DFT curves, anomaly statistics, and cache
// entries. Components never pass raw maps across their boundaries — see
// DESIGN.md "dynamic maps as entities".
package models

import (
	"crypto/md5" //nolint:gosec // used as a content fingerprint, not for security
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Sample is a single time/value observation.
type Sample struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// LabelSet is a label map. A grouped series' LabelSet has no "__name__"
// (grouping.Group drops it); the per-sample labels a DataSource returns do
// carry it, and Fingerprint ignores it.
type LabelSet map[string]string

// Fingerprint returns the canonical JSON of the label set with keys sorted,
// used as the series identity within a query's result set.
func (l LabelSet) Fingerprint() string {
	keys := make([]string, 0, len(l))
	for k := range l {
		if k == "__name__" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct {
		K string `json:"k"`
		V string `json:"v"`
	}, len(keys))
	for i, k := range keys {
		ordered[i].K = k
		ordered[i].V = l[k]
	}

	b, _ := json.Marshal(ordered)
	return string(b)
}

// CacheKey returns MD5(query || fingerprint) as a hex string, identifying a
// (query, labels) pair. persistcache does not use it: its rows are keyed by
// the query row and the fingerprint itself.
func CacheKey(query string, fingerprint string) string {
	h := md5.Sum([]byte(query + fingerprint)) //nolint:gosec // fingerprint, not a security boundary
	return hex.EncodeToString(h[:])
}

// Series is an ordered sequence of samples for one label set.
type Series struct {
	Labels  LabelSet
	Samples []Sample
}

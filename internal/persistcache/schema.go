// Package persistcache is the SQLite-backed relational store for corridor
// cache entries (spec.md §4.7/§6.4): the "queries" and "dft_cache" tables,
// additive schema migration, and the save/load/loadAll/exists/
// shouldRecreate/cleanup operations.
package persistcache

const schemaQueries = `
CREATE TABLE IF NOT EXISTS queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT UNIQUE NOT NULL,
	custom_params TEXT,
	config_hash TEXT,
	last_accessed INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queries_query ON queries(query);
`

const schemaDFTCache = `
CREATE TABLE IF NOT EXISTS dft_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query_id INTEGER NOT NULL REFERENCES queries(id),
	metric_hash TEXT NOT NULL,
	metric_json TEXT,
	data_start INTEGER NOT NULL,
	step INTEGER NOT NULL,
	total_duration INTEGER NOT NULL,
	dft_rebuild_count INTEGER NOT NULL DEFAULT 0,
	labels_json TEXT,
	created_at INTEGER NOT NULL,
	anomaly_stats_json TEXT,
	dft_upper_json TEXT,
	dft_lower_json TEXT,
	upper_trend_json TEXT,
	lower_trend_json TEXT,
	last_accessed INTEGER NOT NULL,
	UNIQUE(query_id, metric_hash)
);
CREATE INDEX IF NOT EXISTS idx_dft_cache_query_id ON dft_cache(query_id);
CREATE INDEX IF NOT EXISTS idx_dft_cache_metric_hash ON dft_cache(metric_hash);
`

// additiveColumns lists columns that may be missing from a pre-existing DB
// file and must be added on open (spec.md §4.7 "additive migrations").
// Order matters only for readability; ALTER TABLE ADD COLUMN is idempotent
// once guarded by the existing-columns check in migrate.go.
var additiveColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{"queries", "custom_params", "ALTER TABLE queries ADD COLUMN custom_params TEXT"},
	{"queries", "config_hash", "ALTER TABLE queries ADD COLUMN config_hash TEXT"},
	{"dft_cache", "upper_trend_json", "ALTER TABLE dft_cache ADD COLUMN upper_trend_json TEXT"},
	{"dft_cache", "lower_trend_json", "ALTER TABLE dft_cache ADD COLUMN lower_trend_json TEXT"},
}

package persistcache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vasiliyffedorov/corridor-proxy/pkg/corerr"
	"github.com/vasiliyffedorov/corridor-proxy/pkg/models"
)

// PersistentCache is the SQLite-backed store for corridor cache entries
// (spec.md §4.7). Saves to the same key serialize through the sharded
// mutex; saves to keys on different shards do not wait on each other's
// lock, though the single DB connection still runs their statements one at
// a time.
type PersistentCache struct {
	db    *sqlx.DB
	locks keyedMutex
}

// Open opens (creating if absent) the SQLite file at path and brings its
// schema up to date.
func Open(path string) (*PersistentCache, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, corerr.CacheStore("opening cache db", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite has no real concurrent writer support

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, corerr.CacheStore("migrating cache db", err)
	}
	return &PersistentCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *PersistentCache) Close() error {
	return c.db.Close()
}

type queryRow struct {
	ID           int64          `db:"id"`
	Query        string         `db:"query"`
	CustomParams sql.NullString `db:"custom_params"`
	ConfigHash   sql.NullString `db:"config_hash"`
	LastAccessed int64          `db:"last_accessed"`
	CreatedAt    int64          `db:"created_at"`
}

type dftCacheRow struct {
	ID               int64          `db:"id"`
	QueryID          int64          `db:"query_id"`
	MetricHash       string         `db:"metric_hash"`
	MetricJSON       sql.NullString `db:"metric_json"`
	DataStart        int64          `db:"data_start"`
	Step             int64          `db:"step"`
	TotalDuration    int64          `db:"total_duration"`
	DFTRebuildCount  int            `db:"dft_rebuild_count"`
	LabelsJSON       sql.NullString `db:"labels_json"`
	CreatedAt        int64          `db:"created_at"`
	AnomalyStatsJSON sql.NullString `db:"anomaly_stats_json"`
	DFTUpperJSON     sql.NullString `db:"dft_upper_json"`
	DFTLowerJSON     sql.NullString `db:"dft_lower_json"`
	UpperTrendJSON   sql.NullString `db:"upper_trend_json"`
	LowerTrendJSON   sql.NullString `db:"lower_trend_json"`
	LastAccessed     int64          `db:"last_accessed"`
}

// cacheKey is the lock granularity: one mutex shard per (query, fingerprint)
// pair, matching the spec's cache key (spec.md §3).
func cacheKey(query, fingerprint string) string {
	return query + "\x00" + fingerprint
}

// Save upserts a cache entry. metric_json and labels_json are both written
// from entry.Labels: the two columns describe the same label set under the
// schema's original naming, kept distinct rather than collapsed so existing
// readers of either column keep working.
func (c *PersistentCache) Save(query, fingerprint string, entry *models.CacheEntry, configHash string) error {
	unlock := c.locks.Lock(cacheKey(query, fingerprint))
	defer unlock()

	labelsJSON, err := json.Marshal(entry.Labels)
	if err != nil {
		return corerr.CacheStore("marshaling labels", err)
	}
	statsJSON, err := json.Marshal(entry.HistoricalStats)
	if err != nil {
		return corerr.CacheStore("marshaling historical stats", err)
	}
	upperJSON, err := json.Marshal(entry.DFTUpper.Coeffs)
	if err != nil {
		return corerr.CacheStore("marshaling upper coeffs", err)
	}
	lowerJSON, err := json.Marshal(entry.DFTLower.Coeffs)
	if err != nil {
		return corerr.CacheStore("marshaling lower coeffs", err)
	}
	upperTrendJSON, err := json.Marshal(entry.DFTUpper.Trend)
	if err != nil {
		return corerr.CacheStore("marshaling upper trend", err)
	}
	lowerTrendJSON, err := json.Marshal(entry.DFTLower.Trend)
	if err != nil {
		return corerr.CacheStore("marshaling lower trend", err)
	}

	now := entry.LastAccessed
	if now.IsZero() {
		now = time.Now()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	tx, err := c.db.Beginx()
	if err != nil {
		return corerr.CacheStore("beginning transaction", err)
	}
	defer tx.Rollback()

	var queryID int64
	err = tx.Get(&queryID, `SELECT id FROM queries WHERE query = ?`, query)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.Exec(
			`INSERT INTO queries (query, custom_params, config_hash, last_accessed, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			query, nil, configHash, now.Unix(), now.Unix(),
		)
		if err != nil {
			return corerr.CacheStore("inserting query row", err)
		}
		queryID, err = res.LastInsertId()
		if err != nil {
			return corerr.CacheStore("reading inserted query id", err)
		}
	case err != nil:
		return corerr.CacheStore("looking up query row", err)
	default:
		if _, err := tx.Exec(
			`UPDATE queries SET config_hash = ?, last_accessed = ? WHERE id = ?`,
			configHash, now.Unix(), queryID,
		); err != nil {
			return corerr.CacheStore("updating query row", err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO dft_cache (
			query_id, metric_hash, metric_json, data_start, step, total_duration,
			dft_rebuild_count, labels_json, created_at, anomaly_stats_json,
			dft_upper_json, dft_lower_json, upper_trend_json, lower_trend_json,
			last_accessed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_id, metric_hash) DO UPDATE SET
			metric_json = excluded.metric_json,
			data_start = excluded.data_start,
			step = excluded.step,
			total_duration = excluded.total_duration,
			dft_rebuild_count = excluded.dft_rebuild_count,
			labels_json = excluded.labels_json,
			created_at = excluded.created_at,
			anomaly_stats_json = excluded.anomaly_stats_json,
			dft_upper_json = excluded.dft_upper_json,
			dft_lower_json = excluded.dft_lower_json,
			upper_trend_json = excluded.upper_trend_json,
			lower_trend_json = excluded.lower_trend_json,
			last_accessed = excluded.last_accessed
		`,
		queryID, fingerprint, string(labelsJSON), entry.DataStart, entry.Step, entry.TotalDuration,
		entry.DFTRebuildCount, string(labelsJSON), createdAt.Unix(), string(statsJSON),
		string(upperJSON), string(lowerJSON), string(upperTrendJSON), string(lowerTrendJSON),
		now.Unix(),
	)
	if err != nil {
		return corerr.CacheStore("upserting dft_cache row", err)
	}

	if err := tx.Commit(); err != nil {
		return corerr.CacheStore("committing transaction", err)
	}
	return nil
}

// Load fetches one cache entry, or (nil, false, nil) if absent.
func (c *PersistentCache) Load(query, fingerprint string) (*models.CacheEntry, bool, error) {
	var qr queryRow
	err := c.db.Get(&qr, `SELECT * FROM queries WHERE query = ?`, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, corerr.CacheStore("loading query row", err)
	}

	var dr dftCacheRow
	err = c.db.Get(&dr, `SELECT * FROM dft_cache WHERE query_id = ? AND metric_hash = ?`, qr.ID, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, corerr.CacheStore("loading dft_cache row", err)
	}

	entry, err := rowToEntry(query, fingerprint, qr, dr)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// LoadAll returns every cache entry whose query matches queryPattern as a
// SQL LIKE pattern (spec.md §6.4, cache listing), or every entry if the
// pattern is empty.
func (c *PersistentCache) LoadAll(queryPattern string) ([]*models.CacheEntry, error) {
	pattern := queryPattern
	if pattern == "" {
		pattern = "%"
	}

	var queryRows []queryRow
	if err := c.db.Select(&queryRows, `SELECT * FROM queries WHERE query LIKE ?`, pattern); err != nil {
		return nil, corerr.CacheStore("loading query rows", err)
	}

	entries := make([]*models.CacheEntry, 0, len(queryRows))
	for _, qr := range queryRows {
		var dftRows []dftCacheRow
		if err := c.db.Select(&dftRows, `SELECT * FROM dft_cache WHERE query_id = ?`, qr.ID); err != nil {
			return nil, corerr.CacheStore("loading dft_cache rows", err)
		}
		for _, dr := range dftRows {
			entry, err := rowToEntry(qr.Query, dr.MetricHash, qr, dr)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Exists reports whether a cache row is present for (query, fingerprint).
func (c *PersistentCache) Exists(query, fingerprint string) (bool, error) {
	var count int
	err := c.db.Get(&count, `
		SELECT COUNT(*) FROM dft_cache d
		JOIN queries q ON q.id = d.query_id
		WHERE q.query = ? AND d.metric_hash = ?`, query, fingerprint)
	if err != nil {
		return false, corerr.CacheStore("checking cache existence", err)
	}
	return count > 0, nil
}

// Touch refreshes last_accessed on a cache hit, but only when the current
// wall-clock hour differs from the stored one (spec.md §4.7 "coarse hourly
// touch") — cheap enough to call on every read without a write per request.
func (c *PersistentCache) Touch(query, fingerprint string, now time.Time) error {
	unlock := c.locks.Lock(cacheKey(query, fingerprint))
	defer unlock()

	var lastAccessed int64
	err := c.db.Get(&lastAccessed, `
		SELECT d.last_accessed FROM dft_cache d
		JOIN queries q ON q.id = d.query_id
		WHERE q.query = ? AND d.metric_hash = ?`, query, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return corerr.CacheStore("reading last_accessed", err)
	}

	if time.Unix(lastAccessed, 0).UTC().Truncate(time.Hour).Equal(now.UTC().Truncate(time.Hour)) {
		return nil
	}

	if _, err := c.db.Exec(`
		UPDATE dft_cache SET last_accessed = ?
		WHERE query_id = (SELECT id FROM queries WHERE query = ?) AND metric_hash = ?`,
		now.Unix(), query, fingerprint,
	); err != nil {
		return corerr.CacheStore("updating last_accessed", err)
	}
	return nil
}

// ShouldRecreate implements spec.md §4.7's recompute gate: a cache entry is
// fresh (no recompute needed, returns false) iff it exists, its config hash
// matches the current one, and it is within maxTTL — except a placeholder
// within maxTTL is always considered fresh regardless of config hash, since
// a config change alone does not make sparse history any less sparse.
func (c *PersistentCache) ShouldRecreate(query, fingerprint, currentConfigHash string, maxTTLSeconds int64, now time.Time) (bool, error) {
	entry, ok, err := c.Load(query, fingerprint)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	age := now.Unix() - entry.CreatedAt.Unix()
	withinTTL := maxTTLSeconds <= 0 || age <= maxTTLSeconds

	if entry.IsPlaceholder {
		return !withinTTL, nil
	}
	if entry.ConfigHash != currentConfigHash {
		return true, nil
	}
	return !withinTTL, nil
}

// Cleanup deletes dft_cache rows not accessed within maxAgeDays, then any
// queries rows left with no remaining dft_cache children.
func (c *PersistentCache) Cleanup(maxAgeDays int, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -maxAgeDays).Unix()

	res, err := c.db.Exec(`DELETE FROM dft_cache WHERE last_accessed < ?`, cutoff)
	if err != nil {
		return 0, corerr.CacheStore("deleting stale dft_cache rows", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, corerr.CacheStore("reading rows affected", err)
	}

	if _, err := c.db.Exec(`
		DELETE FROM queries
		WHERE id NOT IN (SELECT DISTINCT query_id FROM dft_cache)`,
	); err != nil {
		return deleted, corerr.CacheStore("deleting orphaned query rows", err)
	}
	return deleted, nil
}

func rowToEntry(query, fingerprint string, qr queryRow, dr dftCacheRow) (*models.CacheEntry, error) {
	entry := &models.CacheEntry{
		Query:           query,
		Fingerprint:     fingerprint,
		DataStart:       dr.DataStart,
		Step:            dr.Step,
		TotalDuration:   dr.TotalDuration,
		DFTRebuildCount: dr.DFTRebuildCount,
		CreatedAt:       time.Unix(dr.CreatedAt, 0).UTC(),
		LastAccessed:    time.Unix(dr.LastAccessed, 0).UTC(),
	}
	if qr.ConfigHash.Valid {
		entry.ConfigHash = qr.ConfigHash.String
	}

	if dr.LabelsJSON.Valid && dr.LabelsJSON.String != "" {
		if err := json.Unmarshal([]byte(dr.LabelsJSON.String), &entry.Labels); err != nil {
			return nil, corerr.CacheStore("unmarshaling labels_json", err)
		}
	}
	entry.IsPlaceholder = entry.IsUnusedMetric()

	if dr.AnomalyStatsJSON.Valid && dr.AnomalyStatsJSON.String != "" {
		if err := json.Unmarshal([]byte(dr.AnomalyStatsJSON.String), &entry.HistoricalStats); err != nil {
			return nil, corerr.CacheStore("unmarshaling anomaly_stats_json", err)
		}
	}
	if dr.DFTUpperJSON.Valid && dr.DFTUpperJSON.String != "" {
		if err := json.Unmarshal([]byte(dr.DFTUpperJSON.String), &entry.DFTUpper.Coeffs); err != nil {
			return nil, corerr.CacheStore("unmarshaling dft_upper_json", err)
		}
	}
	if dr.DFTLowerJSON.Valid && dr.DFTLowerJSON.String != "" {
		if err := json.Unmarshal([]byte(dr.DFTLowerJSON.String), &entry.DFTLower.Coeffs); err != nil {
			return nil, corerr.CacheStore("unmarshaling dft_lower_json", err)
		}
	}
	if dr.UpperTrendJSON.Valid && dr.UpperTrendJSON.String != "" {
		if err := json.Unmarshal([]byte(dr.UpperTrendJSON.String), &entry.DFTUpper.Trend); err != nil {
			return nil, corerr.CacheStore("unmarshaling upper_trend_json", err)
		}
	}
	if dr.LowerTrendJSON.Valid && dr.LowerTrendJSON.String != "" {
		if err := json.Unmarshal([]byte(dr.LowerTrendJSON.String), &entry.DFTLower.Trend); err != nil {
			return nil, corerr.CacheStore("unmarshaling lower_trend_json", err)
		}
	}

	return entry, nil
}

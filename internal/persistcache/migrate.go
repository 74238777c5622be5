package persistcache

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrate creates the schema if absent, then applies any missing additive
// columns. Both steps are idempotent (spec.md §4.7).
func migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schemaQueries); err != nil {
		return fmt.Errorf("creating queries table: %w", err)
	}
	if _, err := db.Exec(schemaDFTCache); err != nil {
		return fmt.Errorf("creating dft_cache table: %w", err)
	}

	for _, col := range additiveColumns {
		has, err := hasColumn(db, col.table, col.column)
		if err != nil {
			return fmt.Errorf("inspecting %s.%s: %w", col.table, col.column, err)
		}
		if has {
			continue
		}
		if _, err := db.Exec(col.ddl); err != nil {
			return fmt.Errorf("migrating %s.%s: %w", col.table, col.column, err)
		}
	}
	return nil
}

func hasColumn(db *sqlx.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS seen_ids (
  id TEXT PRIMARY KEY,
  first_seen TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_seen_ids_first_seen
ON seen_ids(first_seen);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

// SeenIDs returns every recorded posting id.
func SeenIDs(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM seen_ids;`)
	if err != nil {
		return nil, fmt.Errorf("select seen ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// InsertSeenIgnore records ids in one transaction. Ids already present keep
// their first_seen. It returns how many rows were new.
func InsertSeenIgnore(ctx context.Context, db *sql.DB, ids []string, now time.Time) (added int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen_ids (id, first_seen) VALUES (?, ?);`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	ts := now.UTC().Format(time.RFC3339)
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id, ts)
		if err != nil {
			return 0, fmt.Errorf("insert seen id: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

type SeenStats struct {
	Count  int
	Oldest time.Time
	Newest time.Time
}

func Stats(ctx context.Context, db *sql.DB) (SeenStats, error) {
	var s SeenStats
	var oldest, newest sql.NullString
	err := db.QueryRowContext(ctx, `
SELECT COUNT(*), MIN(first_seen), MAX(first_seen)
FROM seen_ids;
`).Scan(&s.Count, &oldest, &newest)
	if err != nil {
		return s, err
	}
	s.Oldest, _ = time.Parse(time.RFC3339, oldest.String)
	s.Newest, _ = time.Parse(time.RFC3339, newest.String)
	return s, nil
}

// CleanupOlderThan drops ids first seen before cutoff.
func CleanupOlderThan(ctx context.Context, db *sql.DB, cutoff time.Time) (deleted int64, err error) {
	res, err := db.ExecContext(ctx, `
DELETE FROM seen_ids
WHERE first_seen < ?;
`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cleanup seen ids: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

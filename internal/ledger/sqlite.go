package ledger

import (
	"context"
	"time"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/store"
)

// SQLiteStore keeps ids in a seen_ids table. Saves only ever insert.
type SQLiteStore struct {
	db  *store.DB
	now func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := store.Open(ctx, path)
	if err != nil {
		return nil, domain.LedgerErrorf("open %s: %v", path, err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Ledger, error) {
	ids, err := store.SeenIDs(ctx, s.db.Pool)
	if err != nil {
		return Ledger{}, domain.LedgerErrorf("%v", err)
	}
	return New(ids...), nil
}

func (s *SQLiteStore) Save(ctx context.Context, l Ledger) error {
	if _, err := store.InsertSeenIgnore(ctx, s.db.Pool, l.IDs(), s.now()); err != nil {
		return domain.LedgerErrorf("%v", err)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (store.SeenStats, error) {
	return store.Stats(ctx, s.db.Pool)
}

// Prune drops ids first seen before cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return store.CleanupOlderThan(ctx, s.db.Pool, cutoff)
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

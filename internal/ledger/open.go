package ledger

import (
	"context"

	"jobmonitor-engine/internal/domain"
)

// Open returns the store for a configured backend ("json" or "sqlite").
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case "", "json":
		return NewFileStore(path), nil
	case "sqlite":
		return OpenSQLite(ctx, path)
	default:
		return nil, domain.ConfigErrorf("unknown ledger backend %q", backend)
	}
}

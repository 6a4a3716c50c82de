package ledger

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store. LoadErr and SaveErr inject failures.
type MemStore struct {
	mu      sync.Mutex
	l       Ledger
	Saves   int
	LoadErr error
	SaveErr error
}

func NewMemStore(ids ...string) *MemStore { return &MemStore{l: New(ids...)} }

func (m *MemStore) Load(context.Context) (Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return Ledger{}, m.LoadErr
	}
	return m.l.With(), nil
}

func (m *MemStore) Save(_ context.Context, l Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.l = l.With()
	m.Saves++
	return nil
}

func (m *MemStore) Snapshot() Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.l.With()
}

func (m *MemStore) Close() error { return nil }

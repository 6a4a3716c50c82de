// Package ledger remembers which posting ids have been seen across runs.
package ledger

import (
	"context"
	"sort"

	"jobmonitor-engine/internal/domain"
)

// Ledger is an immutable set of posting ids. The zero value is empty.
type Ledger struct {
	ids map[string]struct{}
}

func New(ids ...string) Ledger {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			m[id] = struct{}{}
		}
	}
	return Ledger{ids: m}
}

func (l Ledger) Has(id string) bool {
	_, ok := l.ids[id]
	return ok
}

func (l Ledger) Len() int { return len(l.ids) }

// IDs returns the ids sorted, which keeps the JSON file diff-friendly.
func (l Ledger) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// With returns a new ledger holding l and ids.
func (l Ledger) With(ids ...string) Ledger {
	m := make(map[string]struct{}, len(l.ids)+len(ids))
	for id := range l.ids {
		m[id] = struct{}{}
	}
	for _, id := range ids {
		if id != "" {
			m[id] = struct{}{}
		}
	}
	return Ledger{ids: m}
}

// Diff splits a run's output against the ledger.
//
// newPostings are the matched postings not in l, each id once, in input
// order. updated is l plus the id of every extracted posting, matched or not,
// so filtered-out postings are never re-evaluated.
func Diff(all, matched []domain.Posting, l Ledger) (newPostings []domain.Posting, updated Ledger) {
	emitted := make(map[string]bool)
	for _, p := range matched {
		if p.ID == "" || l.Has(p.ID) || emitted[p.ID] {
			continue
		}
		emitted[p.ID] = true
		newPostings = append(newPostings, p)
	}

	ids := make([]string, 0, len(all)+len(matched))
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	for _, p := range matched {
		ids = append(ids, p.ID)
	}
	return newPostings, l.With(ids...)
}

// Store loads and persists a Ledger. Load on a store that has never been
// saved returns an empty ledger. Failures wrap domain.ErrLedgerIO.
type Store interface {
	Load(ctx context.Context) (Ledger, error)
	Save(ctx context.Context, l Ledger) error
	Close() error
}

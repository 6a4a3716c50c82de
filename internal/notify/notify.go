// Package notify delivers new postings to the outside world.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jobmonitor-engine/internal/domain"
)

// RunMeta is the run context shown in a notification header.
type RunMeta struct {
	RunID    string
	At       time.Time
	Keywords []string
}

// Notifier is called once per non-dry run with the new postings. An error is
// logged by the caller and never rolls back the ledger.
type Notifier interface {
	Notify(ctx context.Context, postings []domain.Posting, meta RunMeta) error
}

// Nop drops notifications, used when no channel is configured.
type Nop struct {
	Log zerolog.Logger
}

func (n Nop) Notify(_ context.Context, postings []domain.Posting, _ RunMeta) error {
	if len(postings) > 0 {
		n.Log.Warn().Int("postings", len(postings)).Msg("notifications disabled; new postings not sent")
	}
	return nil
}

// Recorder keeps every notification in memory.
type Recorder struct {
	Calls [][]domain.Posting
	Err   error
}

func (r *Recorder) Notify(_ context.Context, postings []domain.Posting, _ RunMeta) error {
	r.Calls = append(r.Calls, append([]domain.Posting(nil), postings...))
	return r.Err
}

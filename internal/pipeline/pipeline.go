// Package pipeline runs one monitor pass: load ledger, scrape, filter,
// diff, notify, persist.
package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/events"
	"jobmonitor-engine/internal/filter"
	"jobmonitor-engine/internal/ledger"
	"jobmonitor-engine/internal/notify"
	"jobmonitor-engine/internal/scrape"
)

// ErrAlreadyRunning is returned when a run is requested while one is active.
// The ledger has a single owner, so runs never overlap.
var ErrAlreadyRunning = errors.New("a run is already in progress")

type Options struct {
	DryRun bool
	// Only restricts sources: "html", "structured", a provider or a site id.
	Only string
}

type Runner struct {
	Cfg          config.Config
	Ledger       ledger.Store
	Orchestrator *scrape.Orchestrator
	Notifier     notify.Notifier
	Events       events.Publisher
	// Out receives the dry-run report.
	Out io.Writer
	Log zerolog.Logger
	Now func() time.Time

	mu   sync.Mutex
	last atomic.Pointer[domain.RunReport]
}

// Run executes one pass. Per-source failures never make it fail; only an
// unusable config (domain.ErrConfig) or ledger (domain.ErrLedgerIO) do.
// The report is returned even when persisting the ledger fails.
func (r *Runner) Run(ctx context.Context, opts Options) (domain.RunReport, error) {
	if !r.mu.TryLock() {
		return domain.RunReport{}, ErrAlreadyRunning
	}
	defer r.mu.Unlock()

	now := r.Now
	if now == nil {
		now = time.Now
	}
	runID := uuid.NewString()
	log := r.Log.With().Str("run_id", runID).Logger()
	keywords := filter.Normalize(r.Cfg.Env.Keywords)

	log.Info().Bool("dry_run", opts.DryRun).Str("only", opts.Only).Strs("keywords", keywords).Msg("job monitor starting")

	// The ledger is read before any network traffic so a broken file fails fast.
	seen, err := r.Ledger.Load(ctx)
	if err != nil {
		return domain.RunReport{}, err
	}

	descs, skipped, err := scrape.BuildDescriptors(r.Cfg, opts.Only)
	if err != nil {
		return domain.RunReport{}, err
	}
	for _, s := range skipped {
		log.Warn().Str("source", s.ID).Msg("skipped: " + s.Reason)
	}

	report := r.Orchestrator.Run(ctx, runID, descs)
	report.DryRun = opts.DryRun

	matched := filter.Apply(report.Postings, keywords)
	newPostings, updated := ledger.Diff(report.Postings, matched, seen)
	report.Matched = len(matched)
	report.NewPostings = newPostings

	log.Info().
		Int("extracted", len(report.Postings)).
		Int("matched", len(matched)).
		Int("new", len(newPostings)).
		Dur("elapsed", report.Elapsed()).
		Msg("scraping completed")
	log.Info().Msg(report.Summary())

	if len(newPostings) > 0 {
		events.Emit(r.Events, runID, events.NewPostings, newPostings)
	}

	if opts.DryRun {
		if r.Out != nil {
			if err := notify.WriteDryRunReport(r.Out, report); err != nil {
				log.Warn().Err(err).Msg("write dry-run report")
			}
		}
		r.finish(runID, &report, now)
		return report, nil
	}

	if len(newPostings) > 0 && r.Notifier != nil {
		meta := notify.RunMeta{RunID: runID, At: now(), Keywords: keywords}
		if err := r.Notifier.Notify(ctx, newPostings, meta); err != nil {
			// best effort: the postings are still recorded as seen
			log.Error().Err(err).Msg("notification failed")
		}
	} else if len(newPostings) == 0 {
		log.Info().Msg("no new matching jobs found")
	}

	if err := r.Ledger.Save(ctx, updated); err != nil {
		r.finish(runID, &report, now)
		return report, err
	}
	log.Info().Int("ledger_size", updated.Len()).Msg("ledger saved")

	r.finish(runID, &report, now)
	return report, nil
}

func (r *Runner) finish(runID string, report *domain.RunReport, now func() time.Time) {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = now()
	}
	cp := *report
	r.last.Store(&cp)
	events.Emit(r.Events, runID, events.RunFinished, map[string]any{
		"dry_run":  report.DryRun,
		"sources":  len(report.PerSource),
		"errors":   len(report.Errors),
		"matched":  report.Matched,
		"new":      len(report.NewPostings),
		"elapsed":  report.Elapsed().String(),
		"finished": report.FinishedAt,
	})
}

// Last returns the most recent finished run, if any.
func (r *Runner) Last() (domain.RunReport, bool) {
	p := r.last.Load()
	if p == nil {
		return domain.RunReport{}, false
	}
	return *p, true
}

func (r *Runner) Close() error {
	if r.Ledger == nil {
		return nil
	}
	return r.Ledger.Close()
}

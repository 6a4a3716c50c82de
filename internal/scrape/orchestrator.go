package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/events"
	"jobmonitor-engine/internal/scrape/types"
	"jobmonitor-engine/internal/scrape/util"
)

const (
	DefaultConcurrency = 10
	DefaultRunTimeout  = 5 * time.Minute
)

// Fetcher is the part of fetch.Client the orchestrator needs.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID string, q domain.Query, lim *rate.Limiter) domain.RawFetchResult
}

type Orchestrator struct {
	Fetcher     Fetcher
	Limiters    *util.SourceLimiter
	Extractors  Registry
	Concurrency int
	RunTimeout  time.Duration
	Events      events.Publisher
	Log         zerolog.Logger
	Now         func() time.Time
}

type sourceResult struct {
	status   domain.SourceStatus
	postings []domain.Posting
	// err is the one error recorded for the source, however many of its
	// requests failed.
	err *domain.SourceError
}

// Run scrapes every enabled descriptor and never fails as a whole: per-source
// problems land in RunReport.Errors. Once RunTimeout passes, sources still in
// flight are recorded as timeouts and whatever finished is kept.
func (o *Orchestrator) Run(ctx context.Context, runID string, descs []domain.SourceDescriptor) domain.RunReport {
	now := o.Now
	if now == nil {
		now = time.Now
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	limit := o.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	timeout := o.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	limiters := o.Limiters
	if limiters == nil {
		limiters = util.NewSourceLimiter(float64(rate.Inf), 1)
	}

	report := domain.RunReport{RunID: runID, StartedAt: now()}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var enabled []domain.SourceDescriptor
	for _, d := range descs {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}
	o.Log.Info().Str("run_id", runID).Int("sources", len(enabled)).Int("concurrency", limit).
		Dur("timeout", timeout).Msg("run started")
	events.Emit(o.Events, runID, events.RunStarted, map[string]any{"sources": len(enabled)})

	results := make(chan sourceResult, len(enabled))

	var g errgroup.Group
	g.SetLimit(limit)
	for _, d := range enabled {
		d := d
		g.Go(func() error {
			results <- o.runSource(runCtx, runID, d, limiters.For(d))
			return nil // best-effort: don't cancel siblings
		})
	}
	_ = g.Wait()
	close(results)

	byID := make(map[string]sourceResult, len(enabled))
	for res := range results {
		byID[res.status.SourceID] = res
	}
	// merge in descriptor order so the report does not depend on scheduling
	for _, d := range enabled {
		res := byID[d.ID]
		report.PerSource = append(report.PerSource, res.status)
		report.Postings = append(report.Postings, res.postings...)
		if res.err != nil {
			report.Errors = append(report.Errors, *res.err)
		}
	}

	report.FinishedAt = now()
	o.Log.Info().Str("run_id", runID).Int("postings", len(report.Postings)).Int("errors", len(report.Errors)).
		Dur("elapsed", report.Elapsed()).Msg("run finished")
	return report
}

func (o *Orchestrator) runSource(ctx context.Context, runID string, d domain.SourceDescriptor, lim *rate.Limiter) (res sourceResult) {
	log := o.Log.With().Str("source", d.ID).Logger()
	res.status = domain.SourceStatus{SourceID: d.ID, Name: d.Name, Status: domain.StateFailed}
	if res.status.Name == "" {
		res.status.Name = d.ID
	}

	events.Emit(o.Events, runID, events.SourceStarted, map[string]string{"source": d.ID})
	defer func() {
		res.status.Count = len(res.postings)
		events.Emit(o.Events, runID, events.SourceFinished, res.status)
	}()

	ext, err := o.Extractors.For(d)
	if err != nil {
		res.err = domain.NewSourceError(d.ID, domain.ClassPermanent, err)
		log.Error().Err(err).Msg("no extractor")
		return res
	}

	targets := d.Targets()
	seen := make(map[string]bool)
	ok, failed := 0, 0
	// first failure wins, except that a run timeout always names the source
	var cause *domain.SourceError
	fail := func(se *domain.SourceError) {
		if cause == nil || (se.Class == domain.ClassTimeout && cause.Class != domain.ClassTimeout) {
			cause = se
		}
	}
	for i, q := range targets {
		if ctx.Err() != nil {
			fail(domain.NewSourceError(d.ID, domain.ClassTimeout,
				fmt.Errorf("run deadline reached before %d of %d requests", len(targets)-i, len(targets))))
			failed += len(targets) - i
			break
		}

		raw := o.Fetcher.Fetch(ctx, d.ID, q, lim)
		res.status.Attempts += raw.Attempts
		if !raw.OK() {
			failed++
			se := raw.Err
			if se == nil {
				se = domain.NewSourceError(d.ID, domain.ClassTransient, errors.New("fetch failed"))
			}
			fail(se)
			log.Warn().Str("query", q.Label).Str("class", string(se.Class)).Int("attempts", raw.Attempts).
				Msg(se.Reason)
			continue
		}

		postings, err := safeExtract(ext, d, raw)
		if err != nil {
			failed++
			fail(domain.NewSourceError(d.ID, domain.ClassExtraction, err))
			log.Warn().Str("query", q.Label).Err(err).Msg("extraction failed")
			continue
		}
		ok++

		for _, p := range postings {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			res.postings = append(res.postings, p)
		}
		log.Debug().Str("query", q.Label).Int("postings", len(postings)).Msg("extracted")
	}

	switch {
	case failed == 0:
		res.status.Status = domain.StateOK
	case ok > 0:
		res.status.Status = domain.StatePartial
	}
	if cause != nil {
		se := *cause
		se.SourceID = d.ID
		se.Attempts = res.status.Attempts
		if len(targets) > 1 {
			se.Reason = fmt.Sprintf("%d of %d requests failed: %s", failed, len(targets), se.Reason)
		}
		res.err = &se
	}
	log.Info().Str("status", string(res.status.Status)).Int("postings", len(res.postings)).
		Int("attempts", res.status.Attempts).Msg("source done")
	return res
}

// safeExtract turns an extractor panic into an extraction error so one bad
// page cannot take the run down.
func safeExtract(ext types.Extractor, d domain.SourceDescriptor, raw domain.RawFetchResult) (out []domain.Posting, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return ext.Extract(d, raw)
}

package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type SourceState string

const (
	StateOK      SourceState = "ok"
	StatePartial SourceState = "partial" // some queries failed
	StateFailed  SourceState = "failed"
)

type SourceStatus struct {
	SourceID string      `json:"source_id"`
	Name     string      `json:"name"`
	Status   SourceState `json:"status"`
	Count    int         `json:"count"`
	Attempts int         `json:"attempts"`
}

// RunReport is produced once per run and handed to the notifier and logs.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DryRun     bool           `json:"dry_run"`
	PerSource  []SourceStatus `json:"per_source"`
	// Postings holds every extracted posting, matched or not.
	Postings    []Posting     `json:"-"`
	Matched     int           `json:"matched"`
	NewPostings []Posting     `json:"new_postings"`
	Errors      []SourceError `json:"errors"`
}

func (r RunReport) Elapsed() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

func (r RunReport) Working() []SourceStatus {
	var out []SourceStatus
	for _, s := range r.PerSource {
		if s.Status != StateFailed {
			out = append(out, s)
		}
	}
	return out
}

func (r RunReport) Failed() []SourceStatus {
	var out []SourceStatus
	for _, s := range r.PerSource {
		if s.Status == StateFailed {
			out = append(out, s)
		}
	}
	return out
}

// ErrorFor returns the error recorded for a source, if any.
func (r RunReport) ErrorFor(sourceID string) (SourceError, bool) {
	for _, e := range r.Errors {
		if e.SourceID == sourceID {
			return e, true
		}
	}
	return SourceError{}, false
}

// Summary renders the per-source health block logged at the end of a run.
func (r RunReport) Summary() string {
	per := append([]SourceStatus(nil), r.PerSource...)
	sort.Slice(per, func(i, j int) bool { return per[i].Name < per[j].Name })

	var b strings.Builder
	b.WriteString("Scraper Health Summary:")
	for _, s := range per {
		mark := "✓"
		if s.Status == StateFailed {
			mark = "✗"
		}
		fails := 0
		for _, e := range r.Errors {
			if e.SourceID == s.SourceID {
				fails++
			}
		}
		fmt.Fprintf(&b, "\n  %s %s: %d jobs, %d failures", mark, s.Name, s.Count, fails)
	}
	return b.String()
}

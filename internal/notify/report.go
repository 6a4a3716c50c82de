package notify

import (
	"fmt"
	"io"
	"strings"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/scrape/util"
)

// DryRunListLimit is how many postings the dry-run report lists.
const DryRunListLimit = 20

// WriteDryRunReport prints which sources worked, which failed and why, and
// the first postings that would have been notified.
func WriteDryRunReport(w io.Writer, r domain.RunReport) error {
	rule := strings.Repeat("=", 60)
	sub := strings.Repeat("-", 40)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nDRY RUN REPORT\n%s\n", rule, rule)

	working := r.Working()
	fmt.Fprintf(&b, "\n✅ WORKING SITES (%d):\n%s\n", len(working), sub)
	if len(working) == 0 {
		b.WriteString("  No working sites found\n")
	}
	for _, s := range working {
		fmt.Fprintf(&b, "  ✓ %s: %d jobs found", s.Name, s.Count)
		if s.Status == domain.StatePartial {
			b.WriteString(" (some requests failed)")
		}
		b.WriteString("\n")
	}

	failed := r.Failed()
	fmt.Fprintf(&b, "\n❌ FAILED SITES (%d):\n%s\n", len(failed), sub)
	if len(failed) == 0 {
		b.WriteString("  All sites working!\n")
	}
	for _, s := range failed {
		reason := "Unknown error"
		failures := 0
		for _, e := range r.Errors {
			if e.SourceID == s.SourceID {
				if failures == 0 {
					reason = e.Error()
				}
				failures++
			}
		}
		fmt.Fprintf(&b, "  ✗ %s\n    Reason: %s\n    Failures: %d\n\n", s.Name, reason, failures)
	}

	jobs := r.NewPostings
	fmt.Fprintf(&b, "\n📋 JOBS FOUND (%d):\n%s\n", len(jobs), sub)
	if len(jobs) == 0 {
		b.WriteString("  No matching jobs found\n")
	}
	for i, p := range util.Cap(jobs, DryRunListLimit) {
		fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, orUnknown(p.Source), util.Truncate(orUnknown(p.Title), 60))
		fmt.Fprintf(&b, "     Company: %s\n", util.Truncate(orUnknown(p.Company), 30))
	}
	if len(jobs) > DryRunListLimit {
		fmt.Fprintf(&b, "\n  ... and %d more jobs\n", len(jobs)-DryRunListLimit)
	}

	fmt.Fprintf(&b, "\n%s\nEND OF DRY RUN REPORT\n%s\n\n", rule, rule)
	_, err := io.WriteString(w, b.String())
	return err
}

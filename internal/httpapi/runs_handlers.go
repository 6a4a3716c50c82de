package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"jobmonitor-engine/internal/pipeline"
	"jobmonitor-engine/internal/scrape"
)

// RunStatus mirrors the most recent run for /runs/status. Times are RFC 3339.
type RunStatus struct {
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastNew   int    `json:"last_new"`
	Running   bool   `json:"running"`
}

type RunsHandler struct {
	Deps
}

func (h RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, _ := h.RunStatus.Load().(RunStatus)
	writeJSON(w, http.StatusOK, st)
}

func (h RunsHandler) Last(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.Runs.Last()
	if !ok {
		writeError(w, r, http.StatusNotFound, "no_runs", "no run has finished yet")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Trigger starts a run in the background: POST /runs?dry_run=1&only=google
func (h RunsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	dry, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	opts := pipeline.Options{DryRun: dry, Only: r.URL.Query().Get("only")}

	// Reject a bad selection now rather than in the background run.
	if _, _, err := scrape.BuildDescriptors(h.config(), opts.Only); err != nil {
		writeErr(w, r, err)
		return
	}
	st, _ := h.RunStatus.Load().(RunStatus)
	if st.Running {
		writeErr(w, r, pipeline.ErrAlreadyRunning)
		return
	}
	st.Running = true
	st.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	h.RunStatus.Store(st)

	base := h.BaseCtx
	if base == nil {
		base = context.Background()
	}
	go TrackRun(base, h.Runs, h.RunStatus, opts)

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "dry_run": opts.DryRun, "only": opts.Only})
}

// TrackRun executes one run and mirrors its outcome into status. The
// scheduler uses it too so /runs/status covers every run.
func TrackRun(ctx context.Context, runs Runs, status interface {
	Load() any
	Store(any)
}, opts pipeline.Options) error {
	if st, _ := status.Load().(RunStatus); !st.Running {
		st.Running = true
		status.Store(st)
	}
	rep, err := runs.Run(ctx, opts)

	now := time.Now().UTC().Format(time.RFC3339)
	next, _ := status.Load().(RunStatus)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		// the active run owns the status
		return err
	}
	next.Running = false
	next.LastRunAt = now
	next.LastNew = len(rep.NewPostings)
	if err != nil {
		next.LastError = err.Error()
	} else {
		next.LastError = ""
		next.LastOkAt = now
	}
	status.Store(next)
	return err
}

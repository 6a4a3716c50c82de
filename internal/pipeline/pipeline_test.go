package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/events"
	"jobmonitor-engine/internal/ledger"
	"jobmonitor-engine/internal/notify"
	"jobmonitor-engine/internal/scrape"
	"jobmonitor-engine/internal/scrape/fetch"
)

const boardPage = `<html><body>
<div class="job"><h3>React Developer</h3><span class="co">Acme</span><a href="/a1">view</a></div>
<div class="job"><h3>Accountant</h3><span class="co">Ledgers Inc</span><a href="/b2">view</a></div>
</body></html>`

type fixture struct {
	runner *Runner
	store  *ledger.MemStore
	rec    *notify.Recorder
	hits   *atomic.Int32
	out    *bytes.Buffer
	hub    *events.Hub
}

func newFixture(t *testing.T, handler http.HandlerFunc) fixture {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.RemoteOK.Enabled = false
	cfg.Remotive.Enabled = false
	cfg.Adzuna.Enabled = false
	cfg.Sites = config.Sites{{
		Key:  "board",
		Name: "Board",
		Type: "html",
		URL:  ts.URL,
		Selectors: domain.Selectors{
			JobContainer: "div.job",
			Title:        "h3",
			Company:      ".co",
			Link:         "a",
		},
	}}
	cfg.Env.Keywords = []string{"react"}

	f := fixture{
		store: ledger.NewMemStore(),
		rec:   &notify.Recorder{},
		hits:  &hits,
		out:   &bytes.Buffer{},
		hub:   events.NewHub(),
	}
	f.runner = &Runner{
		Cfg:    cfg,
		Ledger: f.store,
		Orchestrator: &scrape.Orchestrator{
			Fetcher: fetch.New(fetch.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, AttemptTimeout: time.Second},
				fetch.WithSleep(func(context.Context, time.Duration) error { return nil })),
			Extractors: scrape.DefaultRegistry(),
			Log:        zerolog.Nop(),
		},
		Notifier: f.rec,
		Events:   f.hub,
		Out:      f.out,
		Log:      zerolog.Nop(),
	}
	return f
}

func serveBoard(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(boardPage)) }

func TestRunRecordsFilteredOutAndNotifiesOnce(t *testing.T) {
	f := newFixture(t, serveBoard)
	ctx := context.Background()

	report, err := f.runner.Run(ctx, Options{})
	require.NoError(t, err)
	require.Len(t, report.NewPostings, 1)
	assert.Equal(t, "React Developer", report.NewPostings[0].Title)
	assert.Equal(t, "Acme", report.NewPostings[0].Company)
	assert.Equal(t, 1, report.Matched)
	assert.Len(t, report.Postings, 2)

	require.Len(t, f.rec.Calls, 1)
	assert.Len(t, f.rec.Calls[0], 1)

	// both the match and the filtered-out posting are remembered
	seen := f.store.Snapshot()
	assert.Equal(t, 2, seen.Len())
	for _, p := range report.Postings {
		assert.True(t, seen.Has(p.ID))
	}

	// second run: nothing new, nothing sent, ledger unchanged
	report, err = f.runner.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.NewPostings)
	assert.Len(t, f.rec.Calls, 1)
	assert.Equal(t, seen.IDs(), f.store.Snapshot().IDs())

	last, ok := f.runner.Last()
	require.True(t, ok)
	assert.Equal(t, report.RunID, last.RunID)
}

func TestDryRunNeverWritesOrNotifies(t *testing.T) {
	f := newFixture(t, serveBoard)

	report, err := f.runner.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.NewPostings, 1)

	assert.Zero(t, f.store.Saves)
	assert.Equal(t, 0, f.store.Snapshot().Len())
	assert.Empty(t, f.rec.Calls)
	assert.Contains(t, f.out.String(), "DRY RUN REPORT")
	assert.Contains(t, f.out.String(), "✓ Board: 2 jobs found")
	assert.Contains(t, f.out.String(), "[Board] React Developer")

	// a real run afterwards still sees the posting as new
	report, err = f.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Len(t, report.NewPostings, 1)
}

func TestDryRunLeavesLedgerFileUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, serveBoard)

	path := filepath.Join(t.TempDir(), "seen_jobs.json")
	fs := ledger.NewFileStore(path)
	t.Cleanup(func() { _ = fs.Close() })
	require.NoError(t, fs.Save(ctx, ledger.New("remoteok:old")))

	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, past, past))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	f.runner.Ledger = fs
	report, err := f.runner.Run(ctx, Options{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, report.NewPostings, 1)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, st.ModTime().Equal(past), "mtime moved to %s", st.ModTime())

	// no temp files left behind either
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.Contains(t, []string{"seen_jobs.json", "seen_jobs.json.lock"}, e.Name())
	}
}

func TestLedgerLoadFailureAbortsBeforeNetwork(t *testing.T) {
	f := newFixture(t, serveBoard)
	f.store.LoadErr = domain.LedgerErrorf("read seen_jobs.json: permission denied")

	_, err := f.runner.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLedgerIO))
	assert.Zero(t, f.hits.Load())
}

func TestLedgerSaveFailureIsReported(t *testing.T) {
	f := newFixture(t, serveBoard)
	f.store.SaveErr = domain.LedgerErrorf("disk full")

	report, err := f.runner.Run(context.Background(), Options{})
	assert.True(t, errors.Is(err, domain.ErrLedgerIO))
	assert.Len(t, report.NewPostings, 1)
}

func TestNotifyFailureStillPersists(t *testing.T) {
	f := newFixture(t, serveBoard)
	f.rec.Err = errors.New("telegram down")

	_, err := f.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Saves)
	assert.Equal(t, 2, f.store.Snapshot().Len())
}

func TestSourceFailureIsNotARunFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	report, err := f.runner.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, domain.ClassTransient, report.Errors[0].Class)
	assert.Equal(t, int32(2), f.hits.Load())
	assert.Equal(t, 1, f.store.Saves)
}

func TestUnknownOnlyIsConfigError(t *testing.T) {
	f := newFixture(t, serveBoard)

	_, err := f.runner.Run(context.Background(), Options{Only: "myspace"})
	assert.True(t, errors.Is(err, domain.ErrConfig))
	assert.Zero(t, f.hits.Load())

	report, err := f.runner.Run(context.Background(), Options{Only: "structured"})
	require.NoError(t, err)
	assert.Empty(t, report.PerSource)
	assert.Zero(t, f.hits.Load())
}

type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (b blockingNotifier) Notify(context.Context, []domain.Posting, notify.RunMeta) error {
	close(b.entered)
	<-b.release
	return nil
}

func TestRunsNeverOverlap(t *testing.T) {
	f := newFixture(t, serveBoard)
	bn := blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	f.runner.Notifier = bn

	done := make(chan error, 1)
	go func() {
		_, err := f.runner.Run(context.Background(), Options{})
		done <- err
	}()
	<-bn.entered

	_, err := f.runner.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(bn.release)
	require.NoError(t, <-done)
}

func TestRunPublishesEvents(t *testing.T) {
	f := newFixture(t, serveBoard)
	sub := f.hub.Subscribe()

	_, err := f.runner.Run(context.Background(), Options{})
	require.NoError(t, err)

	var types []string
	for len(sub) > 0 {
		var e struct {
			Type string `json:"type"`
		}
		line := <-sub
		require.NoError(t, jsonUnmarshal(line, &e))
		types = append(types, e.Type)
	}
	assert.Contains(t, types, events.NewPostings)
	assert.Equal(t, events.RunFinished, types[len(types)-1])
}

func TestFetchPolicyFromConfig(t *testing.T) {
	p := FetchPolicy(config.Default().Request)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 10*time.Second, p.MaxDelay)
	assert.Equal(t, 15*time.Second, p.AttemptTimeout)
}

func jsonUnmarshal(s string, v any) error { return json.Unmarshal([]byte(s), v) }

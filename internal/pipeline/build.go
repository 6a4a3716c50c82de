package pipeline

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/events"
	"jobmonitor-engine/internal/ledger"
	"jobmonitor-engine/internal/notify"
	"jobmonitor-engine/internal/scrape"
	"jobmonitor-engine/internal/scrape/fetch"
	"jobmonitor-engine/internal/scrape/util"
)

// FetchPolicy maps the request section onto the fetcher's retry policy.
func FetchPolicy(req config.Request) fetch.Policy {
	return fetch.Policy{
		MaxAttempts:    req.MaxRetries,
		BaseDelay:      config.Seconds(req.RetryBaseDelay),
		MaxDelay:       config.Seconds(req.RetryMaxDelay),
		AttemptTimeout: config.Seconds(req.Timeout),
		Jitter:         req.Jitter,
	}
}

// Limiters builds the per-source limiter set; request.rate_limit is the
// default for sources without their own.
func Limiters(req config.Request) *util.SourceLimiter {
	rl := req.RateLimit
	if rl.Requests > 0 && rl.Window.Duration > 0 {
		perSec := float64(rl.Requests) / rl.Window.Seconds()
		return util.NewSourceLimiter(perSec, rl.Requests)
	}
	return util.NewSourceLimiter(float64(rate.Inf), 1)
}

// New wires a Runner from a validated config.
func New(ctx context.Context, cfg config.Config, pub events.Publisher, out io.Writer, log zerolog.Logger) (*Runner, error) {
	store, err := ledger.Open(ctx, cfg.Ledger.Backend, cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}

	var n notify.Notifier = notify.Nop{Log: log.With().Str("component", "notify").Logger()}
	if cfg.Env.HasTelegram() {
		n = notify.NewTelegram(cfg.Env.TelegramToken, cfg.Env.TelegramChatID, log.With().Str("component", "telegram").Logger())
	}

	scrapeLog := log.With().Str("component", "scrape").Logger()
	orch := &scrape.Orchestrator{
		Fetcher:     fetch.New(FetchPolicy(cfg.Request), fetch.WithLogger(scrapeLog)),
		Limiters:    Limiters(cfg.Request),
		Extractors:  scrape.DefaultRegistry(),
		Concurrency: cfg.Request.ConcurrentLimit,
		RunTimeout:  config.Seconds(cfg.Request.RunTimeout),
		Events:      pub,
		Log:         scrapeLog,
	}

	return &Runner{
		Cfg:          cfg,
		Ledger:       store,
		Orchestrator: orch,
		Notifier:     n,
		Events:       pub,
		Out:          out,
		Log:          log.With().Str("component", "pipeline").Logger(),
	}, nil
}

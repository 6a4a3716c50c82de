package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on every tick until ctx ends. Ticks
// that arrive while task is still running are dropped, so runs never overlap.
func Every(ctx context.Context, interval time.Duration, name string, log zerolog.Logger, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		start := time.Now()
		if err := task(ctx); err != nil {
			log.Error().Err(err).Str("task", name).Msg("scheduled run failed")
			return
		}
		log.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("scheduled run done")
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

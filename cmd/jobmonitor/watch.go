package main

import (
	"context"
	"errors"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/events"
	"jobmonitor-engine/internal/httpapi"
	"jobmonitor-engine/internal/logging"
	"jobmonitor-engine/internal/pipeline"
	"jobmonitor-engine/internal/scheduler"
	"jobmonitor-engine/internal/secrets"
)

type watchOpts struct {
	interval time.Duration
	addr     string
	dryRun   bool
	only     string
}

func newWatchCmd(root *rootOpts) *cobra.Command {
	o := &watchOpts{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run on an interval and serve a local status API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.interval < time.Minute {
				return domain.ConfigErrorf("--interval must be at least 1m, got %s", o.interval)
			}
			cfg, log, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hub := events.NewHub()
			runner, err := pipeline.New(ctx, cfg, hub, cmd.OutOrStdout(), log)
			if err != nil {
				return err
			}
			defer runner.Close()

			// A broken ledger is fatal here too, before anything is served.
			if _, err := runner.Ledger.Load(ctx); err != nil {
				return err
			}

			var cfgVal, status atomic.Value
			cfgVal.Store(cfg)
			status.Store(httpapi.RunStatus{})

			deps := httpapi.Deps{
				Hub:       hub,
				Runs:      runner,
				BaseCtx:   ctx,
				CfgVal:    &cfgVal,
				RunStatus: &status,
				SetSecret: secrets.Set,
				Log:       logging.For("http"),
			}
			opts := pipeline.Options{DryRun: o.dryRun, Only: o.only}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpapi.Serve(gctx, o.addr, httpapi.Handler(deps), deps.Log)
			})
			g.Go(func() error {
				scheduler.Every(gctx, o.interval, "watch", logging.For("scheduler"), func(ctx context.Context) error {
					err := httpapi.TrackRun(ctx, runner, &status, opts)
					if errors.Is(err, pipeline.ErrAlreadyRunning) {
						log.Info().Msg("previous run still active; skipping tick")
						return nil
					}
					return err
				})
				return nil
			})

			log.Info().Dur("interval", o.interval).Str("addr", o.addr).Msg("watching")
			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&o.interval, "interval", 30*time.Minute, "time between runs")
	cmd.Flags().StringVar(&o.addr, "addr", "127.0.0.1:38471", "status API listen address")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "never notify or update the ledger")
	cmd.Flags().StringVar(&o.only, "only", "", "restrict sources, as for run")
	return cmd
}

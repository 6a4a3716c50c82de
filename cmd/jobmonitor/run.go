package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/pipeline"
)

type runOpts struct {
	dryRun     bool
	only       string
	googleOnly bool
	adzunaOnly bool
}

func newRunCmd(root *rootOpts) *cobra.Command {
	o := &runOpts{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scrape, notify new matches and update the ledger",
		Example: `  jobmonitor run
  jobmonitor run --dry-run
  jobmonitor run --only html
  jobmonitor run --only google --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			only, err := o.selection()
			if err != nil {
				return err
			}

			cfg, log, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner, err := pipeline.New(ctx, cfg, nil, cmd.OutOrStdout(), log)
			if err != nil {
				return err
			}
			defer runner.Close()

			if o.dryRun {
				log.Info().Msg("dry run: no notifications, no ledger updates")
			}
			_, err = runner.Run(ctx, pipeline.Options{DryRun: o.dryRun, Only: only})
			return err
		},
	}
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "scrape and print a report, but do not notify or update the ledger")
	cmd.Flags().StringVar(&o.only, "only", "", "restrict sources: html, structured, a provider (remoteok, remotive, adzuna, google, greenhouse, lever, smartrecruiters) or a site id")
	cmd.Flags().BoolVar(&o.googleOnly, "google-only", false, "shorthand for --only google")
	cmd.Flags().BoolVar(&o.adzunaOnly, "adzuna-only", false, "shorthand for --only adzuna")
	return cmd
}

func (o *runOpts) selection() (string, error) {
	set := 0
	only := o.only
	if only != "" {
		set++
	}
	if o.googleOnly {
		set++
		only = string(domain.ProviderGoogle)
	}
	if o.adzunaOnly {
		set++
		only = string(domain.ProviderAdzuna)
	}
	if set > 1 {
		return "", domain.ConfigErrorf("--only, --google-only and --adzuna-only are mutually exclusive")
	}
	return only, nil
}

package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/logging"
	"jobmonitor-engine/internal/secrets"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

type rootOpts struct {
	configDir string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}
	cmd := &cobra.Command{
		Use:           "jobmonitor",
		Short:         "Scrape job boards, keep the new matches, notify once",
		Long:          "jobmonitor fetches postings from HTML job boards and job APIs, keeps those whose title matches your keywords, and sends each new one to Telegram exactly once.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.configDir, "config-dir", "", "directory with sites_config.yaml, google_search_sites.yaml and the ledger (default $JOBMONITOR_DATA_DIR or .)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
	cmd.PersistentFlags().StringVar(&o.logFormat, "log-format", "", "log format: text or json (default from config)")

	cmd.AddCommand(
		newRunCmd(o),
		newWatchCmd(o),
		newInitCmd(o),
		newValidateCmd(o),
		newLedgerCmd(o),
		newSecretCmd(),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOpts) dir() string {
	if o.configDir != "" {
		return o.configDir
	}
	return config.DataDir(nil)
}

// load reads, validates and applies the config, and sets up logging.
func (o *rootOpts) load(stderr io.Writer) (config.Config, zerolog.Logger, error) {
	raw, err := config.Load(o.dir(), secrets.Lookup)
	if err != nil {
		return raw, zerolog.Nop(), err
	}

	level, format := raw.Log.Level, raw.Log.Format
	if o.logLevel != "" {
		level = o.logLevel
	}
	if o.logFormat != "" {
		format = o.logFormat
	}
	logging.SetWriter(stderr)
	logging.Configure(level, format)
	log := logging.Base()

	cfg, vr := config.NormalizeAndValidate(raw)
	cl := logging.For("config")
	for _, w := range vr.Warnings {
		cl.Warn().Msg(w)
	}
	if err := vr.Err(); err != nil {
		return cfg, log, err
	}
	return cfg, log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jobmonitor %s (%s)\n", Version, Commit)
		},
	}
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobmonitor-engine/internal/config"
	"jobmonitor-engine/internal/domain"
	"jobmonitor-engine/internal/ledger"
	"jobmonitor-engine/internal/scrape"
	"jobmonitor-engine/internal/secrets"
)

func newInitCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config files into the config dir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := config.EnsureUserConfig(root.dir())
			if err != nil {
				return domain.ConfigErrorf("init %s: %v", root.dir(), err)
			}
			out := cmd.OutOrStdout()
			if len(written) == 0 {
				fmt.Fprintln(out, "config files already present in", root.dir())
			}
			for _, p := range written {
				fmt.Fprintln(out, "wrote", p)
			}
			return nil
		},
	}
}

func newValidateCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and list the sources a run would use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			descs, skipped, err := scrape.BuildDescriptors(cfg, "")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range descs {
				state := "enabled"
				if !d.Enabled {
					state = "disabled"
				}
				fmt.Fprintf(out, "%-18s %-10s %-8s %d request(s)\n", d.ID, d.Kind, state, len(d.Targets()))
			}
			for _, s := range skipped {
				fmt.Fprintf(out, "%-18s skipped: %s\n", s.ID, s.Reason)
			}
			fmt.Fprintf(out, "keywords: %s\n", strings.Join(cfg.Env.Keywords, ", "))
			return nil
		},
	}
}

func newLedgerCmd(root *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the seen-postings ledger",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show how many postings have been seen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := ledger.Open(cmd.Context(), cfg.Ledger.Backend, cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			l, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s\npath:    %s\nseen:    %d\n", cfg.Ledger.Backend, cfg.Ledger.Path, l.Len())
			if s, ok := st.(*ledger.SQLiteStore); ok {
				ss, err := s.Stats(cmd.Context())
				if err == nil && ss.Count > 0 {
					fmt.Fprintf(out, "oldest:  %s\nnewest:  %s\n", ss.Oldest.Format(time.RFC3339), ss.Newest.Format(time.RFC3339))
				}
			}
			return nil
		},
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Forget ids first seen before --older-than (sqlite backend)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := ledger.Open(cmd.Context(), cfg.Ledger.Backend, cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			s, ok := st.(*ledger.SQLiteStore)
			if !ok {
				return domain.ConfigErrorf("prune needs ledger.backend: sqlite (got %s)", cfg.Ledger.Backend)
			}
			n, err := s.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d id(s)\n", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "age cutoff")

	cmd.AddCommand(stats, prune)
	return cmd
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Store API credentials in the OS keychain",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Store one credential (" + strings.Join(secrets.Known, ", ") + ")",
		Args:      cobra.ExactArgs(2),
		ValidArgs: secrets.Known,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := secrets.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stored", args[0])
			return nil
		},
	}, &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove one credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return secrets.Delete(args[0])
		},
	})
	return cmd
}

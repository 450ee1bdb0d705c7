package main

import (
	"os"
	"os/signal"
	"syscall"

	"governance-analytics/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type collectArguments struct {
	NoRefresh bool
}

var collectArgs collectArguments

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Follow the chain and ingest cast votes",
	Long: `Subscribe to the node at RPC_URL, store every vote_cast event in the
database, credit the voter in the activity feed and refresh the summary of
the proposal. Proposals are copied into the database on their first ballot
and re-synced on REFRESH_CRON. Requires RPC_URL and DATABASE_URL.`,
	Args: cobra.NoArgs,
	RunE: collectRun,
}

func init() {
	collectCmd.Flags().BoolVar(&collectArgs.NoRefresh, "no-refresh", false, "disable the scheduled proposal sync and summary refresh")
}

func collectRun(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	log := newLogger(cfg, os.Stdout)
	defer func() { _ = log.Sync() }()
	log.Info("Vote collector starting", zap.String("config", cfg.DebugString()))

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	coll, err := a.newCollector()
	if err != nil {
		return err
	}
	defer func() { _ = coll.Close() }()

	if !collectArgs.NoRefresh {
		stop, err := a.startRefresher(ctx)
		if err != nil {
			return err
		}
		if stop != nil {
			defer stop()
		}
	}

	err = coll.Run(ctx)
	log.Info("shutting down...")
	return err
}

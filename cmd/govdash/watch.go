package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"governance-analytics/internal/config"
	"governance-analytics/internal/rollup"
	"governance-analytics/internal/tui"

	"github.com/spf13/cobra"
)

type watchArguments struct {
	Interval time.Duration
	LogFile  string
}

var watchArgs watchArguments

var watchCmd = &cobra.Command{
	Use:   "watch <proposal-id>",
	Short: "Follow the vote summary of a proposal in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  watchRun,
}

func init() {
	watchCmd.Flags().DurationVarP(&watchArgs.Interval, "interval", "i", 30*time.Second, "refresh interval")
	watchCmd.Flags().StringVar(&watchArgs.LogFile, "log-file", "govdash.log", "where logs go while the view is open")
}

func watchRun(cmd *cobra.Command, args []string) error {
	id, err := parseProposalID(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	// Logs go to a file to avoid interfering with the TUI
	var logWriter io.Writer = io.Discard
	if logFile, err := os.OpenFile(watchArgs.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		defer logFile.Close()
		logWriter = logFile
	} else {
		fmt.Fprintf(os.Stderr, "Warning: failed to open log file, logs are discarded: %v\n", err)
	}
	log := newLogger(cfg, logWriter)
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	fetch := func(ctx context.Context) (*rollup.Summary, error) {
		return a.summaries.GetVoteSummary(ctx, id, false)
	}
	return tui.Watch(ctx, id, fetch, watchArgs.Interval)
}

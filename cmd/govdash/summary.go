package main

import (
	"encoding/json"
	"fmt"
	"os"

	"governance-analytics/internal/config"
	"governance-analytics/internal/tui"

	"github.com/spf13/cobra"
)

type summaryArguments struct {
	Refresh bool
	JSON    bool
	Width   int
}

var summaryArgs summaryArguments

var summaryCmd = &cobra.Command{
	Use:   "summary <proposal-id>",
	Short: "Print the vote summary of a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  summaryRun,
}

func init() {
	summaryCmd.Flags().BoolVarP(&summaryArgs.Refresh, "refresh", "r", false, "recompute even when the cached summary is fresh")
	summaryCmd.Flags().BoolVar(&summaryArgs.JSON, "json", false, "print the summary as JSON")
	summaryCmd.Flags().IntVarP(&summaryArgs.Width, "width", "w", 80, "report width in columns")
}

func summaryRun(cmd *cobra.Command, args []string) error {
	id, err := parseProposalID(args[0])
	if err != nil {
		return err
	}

	cfg := config.Load()
	// stdout carries the report
	log := newLogger(cfg, os.Stderr)
	defer func() { _ = log.Sync() }()

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.summaries.GetVoteSummary(cmd.Context(), id, summaryArgs.Refresh)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("summary of proposal %d is unavailable", id)
	}

	out := cmd.OutOrStdout()
	if summaryArgs.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	_, err = fmt.Fprintln(out, tui.Render(*s, summaryArgs.Width))
	return err
}

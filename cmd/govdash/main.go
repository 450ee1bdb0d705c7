// Package main provides the entry point of the governance analytics service.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"governance-analytics/internal/config"
	"governance-analytics/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "govdash",
	Short:         "Vote analytics for on-chain governance proposals",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Try to load .env from CWD if present; otherwise use environment as-is
	if _, statErr := os.Stat(".env"); statErr == nil {
		_ = godotenv.Load(".env")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config, w io.Writer) *zap.Logger {
	return logger.NewWithWriter(logger.Options{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Debug:    cfg.Debug,
	}, w)
}

func parseProposalID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", arg)
	}
	return id, nil
}

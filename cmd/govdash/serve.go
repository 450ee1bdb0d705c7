package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"governance-analytics/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveArguments struct {
	Addr      string
	Collect   bool
	NoRefresh bool
}

var serveArgs serveArguments

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	Long: `Serve vote summaries, the activity feed, the leaderboard and notifications
over HTTP. Summaries of open proposals are refreshed on REFRESH_CRON.`,
	Args: cobra.NoArgs,
	RunE: serveRun,
}

func init() {
	serveCmd.Flags().StringVarP(&serveArgs.Addr, "addr", "a", "", "listen address (default HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&serveArgs.Collect, "collect", false, "also follow the chain and ingest votes")
	serveCmd.Flags().BoolVar(&serveArgs.NoRefresh, "no-refresh", false, "disable the scheduled summary refresh")
}

func serveRun(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	log := newLogger(cfg, os.Stdout)
	defer func() { _ = log.Sync() }()
	log.Info("Governance analytics starting", zap.String("config", cfg.DebugString()))

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if !serveArgs.NoRefresh {
		stop, err := a.startRefresher(ctx)
		if err != nil {
			return err
		}
		if stop != nil {
			defer stop()
		}
	}

	if serveArgs.Collect {
		coll, err := a.newCollector()
		if err != nil {
			return err
		}
		defer func() { _ = coll.Close() }()
		go func() {
			if err := coll.Run(ctx); err != nil {
				log.Error("collector stopped", zap.Error(err))
				cancel()
			}
		}()
	}

	addr := serveArgs.Addr
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.controller().NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

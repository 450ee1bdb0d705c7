// Package refresher recomputes the summaries of open proposals on a cron
// schedule so readers rarely hit a stale cache entry.
package refresher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"governance-analytics/internal/metrics"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultWorkers = 4
	queueSize      = 256
	runTimeout     = 2 * time.Minute
)

// ProposalLister lists the proposals whose votes can still change.
type ProposalLister interface {
	ActiveProposalIDs(ctx context.Context) ([]uint64, error)
}

type SummaryRefresher interface {
	Refresh(ctx context.Context, proposalID uint64) error
}

// ProposalSyncer re-reads a proposal from its source of truth so status
// changes reach the lister.
type ProposalSyncer interface {
	Sync(ctx context.Context, proposalID uint64) error
}

type Option func(*Scheduler)

// WithProposalSync syncs each proposal before its summary is refreshed.
func WithProposalSync(syncer ProposalSyncer) Option {
	return func(s *Scheduler) {
		s.syncer = syncer
	}
}

// Result counts the outcome of one run.
type Result struct {
	Total  int
	Failed int
}

type Scheduler struct {
	lister    ProposalLister
	summaries SummaryRefresher
	syncer    ProposalSyncer
	logger    *zap.Logger
	pool      pond.Pool
	cron      *cron.Cron
}

func New(lister ProposalLister, summaries SummaryRefresher, workers int, logger *zap.Logger, opts ...Option) *Scheduler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger = logger.Named("refresher")
	s := &Scheduler{
		lister:    lister,
		summaries: summaries,
		logger:    logger,
		pool:      pond.NewPool(workers, pond.WithQueueSize(queueSize)),
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{logger.Sugar()}))),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce refreshes every active proposal, syncing it first when a syncer is
// set. Failures of single proposals are
// counted and logged; only a failure to list proposals is returned.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	ids, err := s.lister.ActiveProposalIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list active proposals: %w", err)
	}

	var failed atomic.Int64
	group := s.pool.NewGroupContext(ctx)
	for _, id := range ids {
		group.Submit(func() {
			if s.syncer != nil {
				if err := s.syncer.Sync(ctx, id); err != nil {
					s.logger.Warn("proposal sync failed", zap.Uint64("proposal_id", id), zap.Error(err))
				}
			}
			if err := s.summaries.Refresh(ctx, id); err != nil {
				failed.Add(1)
				metrics.ObserveRefresh(false)
				s.logger.Warn("refresh failed", zap.Uint64("proposal_id", id), zap.Error(err))
				return
			}
			metrics.ObserveRefresh(true)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return Result{}, fmt.Errorf("refresh group: %w", err)
	}

	res := Result{Total: len(ids), Failed: int(failed.Load())}
	s.logger.Info("refresh run finished", zap.Int("proposals", res.Total), zap.Int("failed", res.Failed))
	return res, nil
}

// Start schedules RunOnce with a six-field cron spec (seconds first).
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		if _, err := s.RunOnce(rctx); err != nil {
			s.logger.Error("refresh run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.Info("cron started", zap.String("cronSpec", spec))
	return nil
}

// Stop waits for a running job and drains the worker pool.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.pool.StopAndWait()
}

// cronLogger routes cron's logr-style calls to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

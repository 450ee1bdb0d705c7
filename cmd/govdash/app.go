package main

import (
	"context"
	"errors"
	"fmt"

	"governance-analytics/internal/activity"
	"governance-analytics/internal/api"
	"governance-analytics/internal/cache"
	"governance-analytics/internal/chain"
	"governance-analytics/internal/collector"
	"governance-analytics/internal/config"
	"governance-analytics/internal/notify"
	"governance-analytics/internal/refresher"
	"governance-analytics/internal/summary"
	"governance-analytics/internal/titles"

	dbpkg "governance-analytics/internal/db"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app wires the components shared by the subcommands.
type app struct {
	cfg config.Config
	log *zap.Logger

	db    *gorm.DB
	store *dbpkg.Store // nil without DATABASE_URL

	proposals summary.ProposalSource
	votes     summary.VoteSource
	summaries *summary.Service
	activity  *activity.Service
	notify    *notify.Service
	titles    *titles.Resolver
	sync      *collector.ProposalSync // nil unless both RPC_URL and DATABASE_URL are set

	checks  map[string]api.HealthCheck
	closers []func() error
}

// newApp connects the configured backends. Proposals and votes come from the
// chain when RPC_URL is set and from the database otherwise. Summaries are
// cached in Redis, then the database, then process memory, whichever is
// configured first.
func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, checks: map[string]api.HealthCheck{}}

	gormDB, err := dbpkg.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if gormDB != nil {
		log.Info("DB connected")
		a.db = gormDB
		a.store = dbpkg.NewStore(gormDB)
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("database handle: %w", err)
		}
		a.checks["database"] = sqlDB.PingContext
		a.closers = append(a.closers, sqlDB.Close)

		if err := dbpkg.AutoMigrate(gormDB); err != nil {
			a.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("Migrations applied")
	} else {
		log.Info("DATABASE_URL not provided, persistence disabled")
	}

	switch {
	case cfg.RPCURL != "":
		client, err := chain.New(cfg.RPCURL, cfg.WSURL(), log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.proposals, a.votes = client, client
	case a.store != nil:
		a.proposals, a.votes = a.store, a.store
	default:
		return nil, errors.New("either RPC_URL or DATABASE_URL is required")
	}

	var summaryCache summary.Cache
	switch {
	case cfg.RedisURL != "":
		r, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.SummaryRetention, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		summaryCache = r
		a.checks["redis"] = r.Health
		a.closers = append(a.closers, r.Close)
	case a.db != nil:
		summaryCache = dbpkg.NewSummaries(a.db)
	default:
		log.Warn("no REDIS_URL or DATABASE_URL, summaries are cached in memory only")
		summaryCache = cache.NewMemory()
	}

	a.summaries = summary.NewService(a.proposals, a.votes, summaryCache, log.Named("summary"),
		summary.WithPolicy(cfg.Policy()),
		summary.WithTTL(cfg.SummaryTTL))

	if a.store != nil {
		a.activity = activity.NewService(a.store, log.Named("activity"))
		a.notify = notify.NewService(a.store, log.Named("notify"))
	} else {
		a.activity = activity.NewService(activity.NewMemoryStore(), log.Named("activity"))
		a.notify = notify.NewService(notify.NewMemoryStore(), log.Named("notify"))
	}
	a.titles = titles.NewResolver(a.proposals, log)
	if cfg.RPCURL != "" && a.store != nil {
		a.sync = collector.NewProposalSync(a.proposals, a.store, a.titles, log)
	}

	return a, nil
}

func (a *app) newCollector() (*collector.Collector, error) {
	if a.store == nil {
		return nil, errors.New("collecting votes needs DATABASE_URL")
	}
	return collector.NewCollector(a.cfg, collector.Deps{
		Votes:     a.store,
		Summaries: a.summaries,
		Activity:  a.activity,
		Notifier:  a.notify,
		Titles:    a.titles,
		Proposals: a.sync,
	}, a.log)
}

// startRefresher schedules the summary refresh of open proposals. Open
// proposals are listed from the database and re-synced from the chain when
// one is configured. The returned stop func is nil when nothing was started.
func (a *app) startRefresher(ctx context.Context) (func(), error) {
	if a.store == nil {
		a.log.Warn("scheduled refresh needs DATABASE_URL to list open proposals, disabled")
		return nil, nil
	}
	var opts []refresher.Option
	if a.sync != nil {
		opts = append(opts, refresher.WithProposalSync(a.sync))
	}
	sched := refresher.New(a.store, a.summaries, a.cfg.RefreshWorkers, a.log, opts...)
	if err := sched.Start(ctx, a.cfg.RefreshCron); err != nil {
		sched.Stop()
		return nil, err
	}
	return sched.Stop, nil
}

func (a *app) controller() *api.Controller {
	return &api.Controller{
		Summaries:     a.summaries,
		Activity:      a.activity,
		Notifications: a.notify,
		Checks:        a.checks,
		Logger:        a.log.Named("api"),
	}
}

// Close releases backends in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close error", zap.Error(err))
		}
	}
	a.closers = nil
}

// Package collector follows the chain over the CometBFT websocket and feeds
// every cast ballot into the vote store, the activity feed and the summary
// cache.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"governance-analytics/internal/activity"
	"governance-analytics/internal/address"
	"governance-analytics/internal/config"
	"governance-analytics/internal/metrics"
	"governance-analytics/internal/notify"
	"governance-analytics/internal/rollup"
	"governance-analytics/internal/titles"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	rpccoretypes "github.com/cometbft/cometbft/rpc/core/types"
	"go.uber.org/zap"
)

const (
	subscriber = "govdash"

	txQuery    = "tm.event = 'Tx' AND vote_cast.proposal_id EXISTS"
	blockQuery = "tm.event = 'NewBlock'"

	watchdogInterval = 30 * time.Second
	reconnectDelay   = 3 * time.Second
	handleTimeout    = 15 * time.Second
)

var (
	errReconnect = errors.New("reconnect: no blocks for 30s")
	errClosed    = errors.New("collector closed")
)

// VoteStore persists ballots. RecordVote reports false for a ballot it
// already holds.
type VoteStore interface {
	RecordVote(ctx context.Context, proposalID uint64, v rollup.Vote, txHash string, height int64) (bool, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, a activity.Activity) (string, error)
}

type Notifier interface {
	Create(ctx context.Context, n notify.Notification) (string, error)
}

type SummaryRefresher interface {
	Refresh(ctx context.Context, proposalID uint64) error
}

// Deps are the collaborators a collector writes to. Activity, Notifier and
// Proposals are optional.
type Deps struct {
	Votes     VoteStore
	Summaries SummaryRefresher
	Activity  ActivityRecorder
	Notifier  Notifier
	Titles    *titles.Resolver
	Proposals *ProposalSync
}

type Collector struct {
	cfg    config.Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time

	clientMu sync.Mutex
	client   *rpchttp.HTTP
	closed   bool

	lastBlockTime   time.Time
	lastBlockTimeMu sync.RWMutex
}

func NewCollector(cfg config.Config, deps Deps, logger *zap.Logger) (*Collector, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("RPC_URL is required")
	}
	if deps.Votes == nil || deps.Summaries == nil {
		return nil, errors.New("collector needs a vote store and a summary refresher")
	}
	return &Collector{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("collector"),
		now:    time.Now,
	}, nil
}

// Run follows the chain until ctx is cancelled, reconnecting after errors
// and after the watchdog notices a stalled connection.
func (c *Collector) Run(ctx context.Context) error {
	defer c.cleanupClient(context.Background())

	for {
		err := c.runLoop(ctx)
		if ctx.Err() != nil || errors.Is(err, errClosed) {
			return nil
		}
		if err != nil && !errors.Is(err, errReconnect) {
			c.logger.Warn("run loop error, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Collector) runLoop(ctx context.Context) error {
	// Goroutines of a connection cycle stop with loopCtx on reconnect
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.cleanupClient(loopCtx)

	client, err := c.initClient()
	if err != nil {
		return err
	}

	txCh, blockCh, err := c.subscribe(loopCtx, client)
	if err != nil {
		return err
	}

	c.updateLastBlockTime()

	c.startEventHandler(loopCtx, "Tx", txCh, c.handleTx)
	c.startEventHandler(loopCtx, "NewBlock", blockCh, func(context.Context, rpccoretypes.ResultEvent) {
		c.updateLastBlockTime()
	})

	return c.watchdogLoop(loopCtx)
}

func (c *Collector) cleanupClient(ctx context.Context) {
	client := c.takeClient()
	if client == nil {
		return
	}

	unsubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_ = client.UnsubscribeAll(unsubCtx, subscriber)
	_ = client.Stop()
}

func (c *Collector) initClient() (*rpchttp.HTTP, error) {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()
	if c.closed {
		return nil, errClosed
	}

	client, err := rpchttp.New(c.cfg.RPCURL, c.cfg.WSURL())
	if err != nil {
		return nil, fmt.Errorf("create rpc client: %w", err)
	}
	if err := client.Start(); err != nil {
		return nil, fmt.Errorf("start rpc client: %w", err)
	}
	c.client = client
	return client, nil
}

// takeClient detaches the current client so only one caller stops it.
func (c *Collector) takeClient() *rpchttp.HTTP {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()
	client := c.client
	c.client = nil
	return client
}

func (c *Collector) subscribe(ctx context.Context, client *rpchttp.HTTP) (<-chan rpccoretypes.ResultEvent, <-chan rpccoretypes.ResultEvent, error) {
	txCh, err := client.Subscribe(ctx, subscriber, txQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe Tx: %w", err)
	}
	blockCh, err := client.Subscribe(ctx, subscriber, blockQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe NewBlock: %w", err)
	}
	c.logger.Info("subscribed to events", zap.String("rpc", c.cfg.RPCURL), zap.Strings("queries", []string{txQuery, blockQuery}))
	return txCh, blockCh, nil
}

func (c *Collector) startEventHandler(ctx context.Context, name string, ch <-chan rpccoretypes.ResultEvent, handler func(context.Context, rpccoretypes.ResultEvent)) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					c.logger.Warn("event channel closed", zap.String("event", name))
					return
				}
				handler(ctx, ev)
			}
		}
	}()
}

func (c *Collector) updateLastBlockTime() {
	c.lastBlockTimeMu.Lock()
	c.lastBlockTime = c.now()
	c.lastBlockTimeMu.Unlock()
}

func (c *Collector) watchdogLoop(ctx context.Context) error {
	watchdog := time.NewTicker(watchdogInterval)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watchdog.C:
			if c.shouldReconnect() {
				c.logger.Warn("no blocks received for 30+ seconds, reconnecting websocket")
				return errReconnect
			}
		}
	}
}

func (c *Collector) shouldReconnect() bool {
	c.lastBlockTimeMu.RLock()
	defer c.lastBlockTimeMu.RUnlock()
	return c.now().Sub(c.lastBlockTime) > watchdogInterval
}

// Close stops the current client. A running Run returns instead of
// reconnecting.
func (c *Collector) Close() error {
	c.clientMu.Lock()
	c.closed = true
	client := c.client
	c.client = nil
	c.clientMu.Unlock()

	if client != nil {
		return client.Stop()
	}
	return nil
}

// handleTx stores the ballots of one transaction. Each touched proposal is
// refreshed once, after all of its ballots are stored.
func (c *Collector) handleTx(ctx context.Context, ev rpccoretypes.ResultEvent) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	txHash := firstAttr(ev.Events, []string{"tx.hash"})
	height := parseHeight(firstAttr(ev.Events, []string{"tx.height"}))
	log := c.logger.With(zap.String("tx", txHash), zap.Int64("height", height))

	ballots, err := parseBallots(ev.Events, c.now())
	if err != nil {
		metrics.ObserveIngest("malformed")
		log.Warn("skipping malformed vote_cast events", zap.Error(err))
	}

	var touched []uint64
	seen := map[uint64]bool{}
	for _, b := range ballots {
		inserted, err := c.deps.Votes.RecordVote(ctx, b.ProposalID, b.Vote, txHash, height)
		if err != nil {
			metrics.ObserveIngest("error")
			log.Error("store vote failed", zap.Uint64("proposal_id", b.ProposalID), zap.String("ballot", b.Vote.Label()), zap.Error(err))
			continue
		}
		if !inserted {
			metrics.ObserveIngest("duplicate")
			log.Debug("vote already stored", zap.Uint64("proposal_id", b.ProposalID), zap.String("ballot", b.Vote.Label()))
			continue
		}
		metrics.ObserveIngest("stored")

		c.recordActivity(ctx, b)
		if !seen[b.ProposalID] {
			seen[b.ProposalID] = true
			touched = append(touched, b.ProposalID)
		}
	}

	for _, id := range touched {
		if c.deps.Proposals != nil {
			if err := c.deps.Proposals.Ensure(ctx, id); err != nil {
				log.Warn("proposal sync failed", zap.Uint64("proposal_id", id), zap.Error(err))
			}
		}
		if err := c.deps.Summaries.Refresh(ctx, id); err != nil {
			log.Warn("summary refresh after vote failed", zap.Uint64("proposal_id", id), zap.Error(err))
		}
	}
}

// recordActivity credits public voters. Private ballots stay out of the
// feed; their voter is unknown by construction.
func (c *Collector) recordActivity(ctx context.Context, b ballot) {
	if b.Vote.Kind != rollup.KindPublic {
		return
	}
	title := c.deps.Titles.Resolve(ctx, b.ProposalID)
	desc := fmt.Sprintf("Voted %s on proposal #%d", b.Vote.Support, b.ProposalID)

	if c.deps.Activity != nil {
		_, err := c.deps.Activity.Record(ctx, activity.Activity{
			Type:          activity.VoteCast,
			UserAddress:   b.Vote.Voter,
			ProposalID:    b.ProposalID,
			ProposalTitle: title,
			Description:   desc,
			Value:         b.Vote.Weight,
		})
		if err != nil {
			c.logger.Warn("record vote activity failed", zap.String("voter", b.Vote.Voter), zap.Error(err))
		}
	}

	if c.deps.Notifier != nil {
		msg := desc
		if title != "" {
			msg = fmt.Sprintf("%s (%s)", desc, title)
		}
		_, err := c.deps.Notifier.Create(ctx, notify.Notification{
			UserID:     address.Key(b.Vote.Voter),
			Kind:       notify.KindVote,
			Title:      "Vote recorded",
			Message:    msg,
			Link:       fmt.Sprintf("/proposals/%d", b.ProposalID),
			ProposalID: b.ProposalID,
		})
		if err != nil {
			c.logger.Warn("create vote notification failed", zap.String("voter", b.Vote.Voter), zap.Error(err))
		}
	}
}

func firstAttr(attrs map[string][]string, keys []string) string {
	for _, k := range keys {
		for ak, vals := range attrs {
			if strings.EqualFold(ak, k) && len(vals) > 0 {
				v := strings.TrimSpace(vals[0])
				if v != "" {
					return v
				}
			}
		}
	}
	return ""
}

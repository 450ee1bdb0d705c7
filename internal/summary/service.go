// Package summary serves vote summaries, recomputing them from the vote
// source when the stored copy is stale.
//
// Concurrent refreshes of the same proposal are not coordinated: both
// recompute and the last Set wins. Summaries are derivable from the votes, so
// the race only costs a duplicate computation.
package summary

import (
	"context"
	"errors"
	"time"

	"governance-analytics/internal/metrics"
	"governance-analytics/internal/rollup"

	"go.uber.org/zap"
)

// Proposal is the part of a governance proposal the rollup needs.
type Proposal struct {
	ID          uint64
	Title       string
	Description string
	Proposer    string
	Status      string
	Quorum      float64 // live quorum when the source knows it, 0 otherwise
}

type ProposalSource interface {
	// FetchProposal returns nil, nil when the proposal does not exist.
	FetchProposal(ctx context.Context, id uint64) (*Proposal, error)
}

type VoteSource interface {
	FetchVotes(ctx context.Context, proposalID uint64) ([]rollup.Vote, error)
}

// Cache stores one summary per proposal.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, proposalID uint64) (*rollup.Summary, error)
	Set(ctx context.Context, proposalID uint64, s rollup.Summary) error
}

type Service struct {
	proposals ProposalSource
	votes     VoteSource
	cache     Cache
	logger    *zap.Logger

	policy rollup.Policy
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Service)

// WithPolicy sets the thresholds used when a proposal carries no quorum.
func WithPolicy(p rollup.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithTTL sets how long a cached summary is served as is.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(proposals ProposalSource, votes VoteSource, cache Cache, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		proposals: proposals,
		votes:     votes,
		cache:     cache,
		logger:    logger,
		policy:    rollup.DefaultPolicy(),
		ttl:       rollup.StaleAfter,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetVoteSummary returns the summary of a proposal. A nil summary with a nil
// error means the proposal or its votes are unavailable right now. An error
// is only returned for votes the rollup rejects as malformed.
func (s *Service) GetVoteSummary(ctx context.Context, proposalID uint64, forceRefresh bool) (*rollup.Summary, error) {
	log := s.logger.With(zap.Uint64("proposal_id", proposalID))
	now := s.now()

	cached, err := s.cache.Get(ctx, proposalID)
	if err != nil {
		metrics.ObserveCacheError("get")
		log.Warn("summary cache read failed, recomputing", zap.Error(err))
		cached = nil
	}
	if !forceRefresh && cached != nil && cached.FreshAt(now, s.ttl) {
		metrics.ObserveLookup("hit")
		log.Debug("serving cached summary", zap.Time("last_updated", cached.LastUpdated))
		return cached, nil
	}

	started := time.Now()
	proposal, err := s.proposals.FetchProposal(ctx, proposalID)
	if err != nil {
		metrics.ObserveLookup("unavailable")
		log.Error("fetch proposal failed", zap.Error(err))
		return nil, nil
	}
	if proposal == nil {
		metrics.ObserveLookup("unavailable")
		log.Error("proposal not found")
		return nil, nil
	}

	votes, err := s.votes.FetchVotes(ctx, proposalID)
	if err != nil {
		metrics.ObserveLookup("unavailable")
		log.Error("fetch votes failed", zap.Error(err))
		return nil, nil
	}
	if len(votes) == 0 {
		log.Warn("no votes found")
	}

	policy := s.policy
	if proposal.Quorum > 0 {
		policy.QuorumThreshold = proposal.Quorum
	}

	computed, err := rollup.Compute(proposalID, votes, policy, now)
	if err != nil {
		metrics.ObserveLookup("malformed")
		log.Error("vote source returned malformed votes", zap.Int("votes", len(votes)), zap.Error(err))
		return nil, err
	}
	if cached != nil && !cached.Timestamp.IsZero() {
		computed.Timestamp = cached.Timestamp
	}
	metrics.ObserveRollup(time.Since(started))
	metrics.ObserveLookup("computed")

	if err := s.cache.Set(ctx, proposalID, computed); err != nil {
		metrics.ObserveCacheError("set")
		log.Error("saving summary failed", zap.Error(err))
	} else {
		log.Debug("summary saved",
			zap.Int("votes", computed.VotingTrends.TotalVotes),
			zap.Bool("quorum", computed.VotingTrends.QuorumReached),
			zap.Bool("majority", computed.VotingTrends.MajorityReached))
	}
	return &computed, nil
}

// Refresh recomputes a summary regardless of its age. It reports an error
// when no summary could be produced, which suits batch callers that count
// failures.
func (s *Service) Refresh(ctx context.Context, proposalID uint64) error {
	got, err := s.GetVoteSummary(ctx, proposalID, true)
	if err != nil {
		return err
	}
	if got == nil {
		return ErrUnavailable
	}
	return nil
}

// ErrUnavailable is returned by Refresh when the proposal or its votes could
// not be fetched.
var ErrUnavailable = errors.New("summary unavailable")

package collector

import (
	"context"
	"fmt"

	"governance-analytics/internal/summary"
	"governance-analytics/internal/titles"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// ProposalStore keeps the proposals database-backed readers see.
type ProposalStore interface {
	SaveProposal(ctx context.Context, p summary.Proposal) error
}

// ProposalSync copies proposals from the chain into the database. Without it
// the database knows ballots but not the proposals they belong to.
type ProposalSync struct {
	source summary.ProposalSource
	store  ProposalStore
	titles *titles.Resolver
	logger *zap.Logger

	known *xsync.Map[uint64, summary.Proposal]
}

func NewProposalSync(source summary.ProposalSource, store ProposalStore, titles *titles.Resolver, logger *zap.Logger) *ProposalSync {
	return &ProposalSync{
		source: source,
		store:  store,
		titles: titles,
		logger: logger.Named("proposals"),
		known:  xsync.NewMap[uint64, summary.Proposal](),
	}
}

// Ensure syncs a proposal the first time this process sees it.
func (s *ProposalSync) Ensure(ctx context.Context, id uint64) error {
	if _, ok := s.known.Load(id); ok {
		return nil
	}
	return s.Sync(ctx, id)
}

// Sync reads a proposal from the chain and upserts it. A proposal the chain
// does not know is left alone.
func (s *ProposalSync) Sync(ctx context.Context, id uint64) error {
	p, err := s.source.FetchProposal(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch proposal %d: %w", id, err)
	}
	if p == nil {
		s.logger.Debug("proposal unknown on chain", zap.Uint64("proposal_id", id))
		return nil
	}
	if err := s.store.SaveProposal(ctx, *p); err != nil {
		return fmt.Errorf("save proposal %d: %w", id, err)
	}

	prev, seen := s.known.Load(id)
	if seen && prev.Title != p.Title {
		s.titles.Forget(id)
	}
	if !seen || prev.Status != p.Status {
		s.logger.Info("proposal synced", zap.Uint64("proposal_id", id), zap.String("status", p.Status))
	}
	s.known.Store(id, *p)
	return nil
}

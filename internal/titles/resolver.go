package titles

import (
	"context"
	"sync"
	"time"

	"governance-analytics/internal/summary"

	"go.uber.org/zap"
)

// Resolver fetches and caches proposal titles so feed entries can name the
// proposal they refer to without a lookup per event.
type Resolver struct {
	source summary.ProposalSource
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[uint64]entry
	ttl   time.Duration
	now   func() time.Time
}

type entry struct {
	title     string
	fetchedAt time.Time
}

// DefaultTTL bounds how long a renamed proposal shows its old title.
const DefaultTTL = 30 * time.Minute

func NewResolver(source summary.ProposalSource, logger *zap.Logger) *Resolver {
	if source == nil {
		return nil
	}
	return &Resolver{
		source: source,
		logger: logger.Named("titles"),
		cache:  map[uint64]entry{},
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// Resolve returns the title of a proposal, or "" when it cannot be found.
// A stale title is returned when the refresh fails.
func (r *Resolver) Resolve(ctx context.Context, proposalID uint64) string {
	if r == nil {
		return ""
	}

	// Fast path: cached
	r.mu.RLock()
	e, ok := r.cache[proposalID]
	r.mu.RUnlock()
	if ok && r.now().Sub(e.fetchedAt) <= r.ttl {
		return e.title
	}

	p, err := r.source.FetchProposal(ctx, proposalID)
	if err != nil {
		r.logger.Warn("fetch proposal title failed", zap.Uint64("proposal_id", proposalID), zap.Error(err))
		return e.title
	}
	if p == nil {
		return ""
	}

	r.mu.Lock()
	r.cache[proposalID] = entry{title: p.Title, fetchedAt: r.now()}
	r.mu.Unlock()
	return p.Title
}

// Forget drops a cached title.
func (r *Resolver) Forget(proposalID uint64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.cache, proposalID)
	r.mu.Unlock()
}

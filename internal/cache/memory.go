// Package cache provides the summary stores the summary service reads and
// writes: an in-process map and a Redis-backed store.
package cache

import (
	"context"

	"governance-analytics/internal/rollup"

	"github.com/puzpuzpuz/xsync/v4"
)

// Memory keeps summaries in process. Used by the one-shot CLI commands and
// by deployments without Redis or a database.
type Memory struct {
	items *xsync.Map[uint64, rollup.Summary]
}

func NewMemory() *Memory {
	return &Memory{items: xsync.NewMap[uint64, rollup.Summary]()}
}

func (m *Memory) Get(_ context.Context, proposalID uint64) (*rollup.Summary, error) {
	s, ok := m.items.Load(proposalID)
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) Set(_ context.Context, proposalID uint64, s rollup.Summary) error {
	m.items.Store(proposalID, s)
	return nil
}

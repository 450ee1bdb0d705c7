package activity

import (
	"context"
	"sort"
	"sync"

	"governance-analytics/internal/address"
)

// MemoryStore is a Store kept in process, for deployments without a
// database.
type MemoryStore struct {
	mu         sync.RWMutex
	activities []Activity
	stats      map[string]UserStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stats: map[string]UserStats{}}
}

func (m *MemoryStore) InsertActivity(_ context.Context, a Activity) error {
	m.mu.Lock()
	m.activities = append(m.activities, a)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListActivities(_ context.Context, q FeedQuery) ([]Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make(map[Type]bool, len(q.Types))
	for _, t := range q.Types {
		types[t] = true
	}

	out := []Activity{}
	for i := len(m.activities) - 1; i >= 0; i-- {
		a := m.activities[i]
		if q.UserAddress != "" && !address.Same(a.UserAddress, q.UserAddress) {
			continue
		}
		if len(types) > 0 && !types[a.Type] {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) GetUserStats(_ context.Context, key string) (*UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stats[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) SaveUserStats(_ context.Context, s UserStats) error {
	m.mu.Lock()
	m.stats[s.Address] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) TopUsers(_ context.Context, limit int) ([]UserStats, error) {
	m.mu.RLock()
	out := make([]UserStats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Address < out[j].Address
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

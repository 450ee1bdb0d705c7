package notify

import (
	"context"
	"sync"
)

// MemoryStore is a Store kept in process.
type MemoryStore struct {
	mu    sync.Mutex
	items []Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) InsertNotification(_ context.Context, n Notification) error {
	m.mu.Lock()
	m.items = append(m.items, n)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, userID string, opts ListOptions) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kinds := make(map[Kind]bool, len(opts.Kinds))
	for _, k := range opts.Kinds {
		kinds[k] = true
	}

	out := []Notification{}
	for i := len(m.items) - 1; i >= 0; i-- {
		n := m.items[i]
		if n.UserID != userID || (opts.UnreadOnly && n.Read) || (len(kinds) > 0 && !kinds[n.Kind]) {
			continue
		}
		out = append(out, n)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkNotificationRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read {
			m.items[i].Read = true
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

package orderlog

import (
	"context"
	"sync"
)

// Repository persists order log rows. Save appends; it never updates.
type Repository interface {
	Save(ctx context.Context, entry *Entry) error
	// GetLatest returns ErrNotFound for unknown ids.
	GetLatest(ctx context.Context, orderID string) (*Entry, error)
}

// Memory keeps the log in process memory. Used when no database path is
// configured and in tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]Entry)}
}

func (m *Memory) Save(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.OrderID] = append(m.entries[entry.OrderID], *entry)
	return nil
}

func (m *Memory) GetLatest(_ context.Context, orderID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.entries[orderID]
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	latest := rows[len(rows)-1]
	if latest.Payload == "" {
		for _, r := range rows {
			if r.Payload != "" {
				latest.Payload = r.Payload
				break
			}
		}
	}
	return &latest, nil
}

// History returns every row for an order, oldest first.
func (m *Memory) History(orderID string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.entries[orderID]...)
}

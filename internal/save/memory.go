package save

import (
	"context"
	"sync"
)

// MemoryStore keeps the save in process memory. Used by tests and by hosts
// configured without persistence.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.saved = true
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (State, bool) {
	if ctx.Err() != nil {
		return State{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.saved
}

func (m *MemoryStore) Close() error { return nil }

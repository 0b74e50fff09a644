package history

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/tallybot/pkg/metrics"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	limit   int
	entries map[int64][]Entry
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-process store.
func NewMemory(opts ...Option) *Memory {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory{limit: o.limit, entries: make(map[int64][]Entry)}
}

func (m *Memory) Append(_ context.Context, requester int64, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.entries[requester], e)
	if over := len(list) - m.limit; over > 0 {
		list = slices.Delete(list, 0, over)
	}
	m.entries[requester] = list
	metrics.RecordHistoryAppend(string(e.Direction))
	return nil
}

func (m *Memory) List(_ context.Context, requester int64) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries[requester]), nil
}

func (m *Memory) Reset(_ context.Context, requester int64) error {
	m.mu.Lock()
	delete(m.entries, requester)
	m.mu.Unlock()
	metrics.RecordHistoryReset()
	return nil
}

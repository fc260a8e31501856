package ohlcv

import (
	"context"
	"sync"

	"github.com/newthinker/meridian/internal/core"
)

type key struct {
	symbol   string
	source   string
	interval core.Interval
}

// MemoryStore is an in-process gateway.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[key]core.FetchResult
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[key]core.FetchResult)}
}

func (m *MemoryStore) GetLatest(ctx context.Context, inst core.Instrument, source string, interval core.Interval) (core.FetchResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[key{inst.Symbol, source, interval}]
	if !ok {
		return core.FetchResult{}, false, nil
	}
	return r.Clone(), true, nil
}

// Put replaces the stored result for the key.
func (m *MemoryStore) Put(ctx context.Context, r core.FetchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{r.Series.Instrument.Symbol, r.Source, r.Series.Interval}
	stored := r.Clone()
	stored.Warnings = nil
	stored.FromCache = false
	m.results[k] = stored
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results)
}

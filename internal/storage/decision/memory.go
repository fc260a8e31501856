package decision

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/meridian/internal/core"
)

// MemoryStore is an in-memory decision store that keeps the newest maxSize
// decisions.
type MemoryStore struct {
	decisions []core.ConsensusDecision
	maxSize   int
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		decisions: make([]core.ConsensusDecision, 0, maxSize),
		maxSize:   maxSize,
	}
}

// Save adds a decision to the store.
func (m *MemoryStore) Save(ctx context.Context, d core.ConsensusDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.decisions = append(m.decisions, d)

	// Trim if over capacity (remove oldest)
	if m.maxSize > 0 && len(m.decisions) > m.maxSize {
		m.decisions = m.decisions[len(m.decisions)-m.maxSize:]
	}
	return nil
}

// GetByID retrieves a decision by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.ConsensusDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.decisions {
		if m.decisions[i].ID == id {
			d := m.decisions[i]
			return &d, nil
		}
	}
	return nil, core.Errorf(ErrNotFound, "id %s", id)
}

// List returns decisions matching the filter.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.ConsensusDecision, error) {
	m.mu.RLock()
	var result []core.ConsensusDecision
	for _, d := range m.decisions {
		if matches(d, filter) {
			result = append(result, d)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool { return result[i].DecidedAt.After(result[j].DecidedAt) })

	if filter.Offset >= len(result) {
		return []core.ConsensusDecision{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Count returns the count of matching decisions.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, d := range m.decisions {
		if matches(d, filter) {
			count++
		}
	}
	return count, nil
}

func matches(d core.ConsensusDecision, filter ListFilter) bool {
	if filter.Symbol != "" && d.Symbol != filter.Symbol {
		return false
	}
	if filter.Action != "" && d.Action != filter.Action {
		return false
	}
	if !filter.From.IsZero() && d.DecidedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && d.DecidedAt.After(filter.To) {
		return false
	}
	return true
}

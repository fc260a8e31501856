package news

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// MemoryStore is an in-memory news store.
type MemoryStore struct {
	mu      sync.RWMutex
	items   []core.NewsItem
	byURL   map[string]struct{}
	scores  []core.SentimentScore
	counter int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURL: make(map[string]struct{})}
}

func (m *MemoryStore) AppendNews(ctx context.Context, items []core.NewsItem) ([]core.NewsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted []core.NewsItem
	for _, it := range items {
		if _, dup := m.byURL[it.URL]; dup {
			continue
		}
		m.counter++
		it.ID = m.counter
		m.byURL[it.URL] = struct{}{}
		m.items = append(m.items, it)
		inserted = append(inserted, it)
	}
	return inserted, nil
}

func (m *MemoryStore) Recent(ctx context.Context, symbol string, since time.Time, limit int) ([]core.NewsItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.NewsItem
	for _, it := range m.items {
		if it.Symbol == symbol && !it.PublishedAt.Before(since) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Unscored(ctx context.Context, model string, limit int) ([]core.NewsItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make(map[int64]struct{})
	for _, s := range m.scores {
		if s.Model == model && s.NewsItemID != nil {
			scored[*s.NewsItemID] = struct{}{}
		}
	}
	var out []core.NewsItem
	for _, it := range m.items {
		if _, ok := scored[it.ID]; !ok {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) AppendScores(ctx context.Context, scores []core.SentimentScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range scores {
		m.counter++
		s.ID = m.counter
		if s.NewsItemID != nil {
			id := *s.NewsItemID
			s.NewsItemID = &id
		}
		m.scores = append(m.scores, s)
	}
	return nil
}

func (m *MemoryStore) Scores(ctx context.Context, newsItemID int64) ([]core.SentimentScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.SentimentScore
	for _, s := range m.scores {
		if s.NewsItemID != nil && *s.NewsItemID == newsItemID {
			out = append(out, s)
		}
	}
	return out, nil
}

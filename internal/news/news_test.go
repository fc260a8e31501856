package news

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/meridian/internal/core"
	newsstore "github.com/newthinker/meridian/internal/storage/news"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type stubProvider struct {
	name  string
	items map[string][]core.NewsItem
	err   error

	mu    sync.Mutex
	since []time.Time
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(_ context.Context, symbol string, since time.Time, limit int) ([]core.NewsItem, error) {
	s.mu.Lock()
	s.since = append(s.since, since)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	items := append([]core.NewsItem(nil), s.items[symbol]...)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func item(url, title string) core.NewsItem {
	return core.NewsItem{URL: url, Title: title, PublishedAt: now.Add(-time.Hour)}
}

func collector(store newsstore.Store, providers ...Provider) *Collector {
	mock := clock.NewMock()
	mock.Set(now)
	return NewCollector(store, providers, CollectorConfig{Lookback: 6 * time.Hour, Limit: 10, Concurrency: 2}, mock, nil)
}

func TestCollect_DedupesAcrossProviders(t *testing.T) {
	a := &stubProvider{name: "newsapi", items: map[string][]core.NewsItem{
		"AAPL": {item("https://x.com/a", "A"), item("https://x.com/b/", "B")},
	}}
	b := &stubProvider{name: "gnews", items: map[string][]core.NewsItem{
		"AAPL": {item("https://x.com/b", "B again"), item("https://x.com/c#top", "C")},
		"MSFT": {item("https://x.com/m", "M")},
	}}
	store := newsstore.NewMemoryStore()

	rep, err := collector(store, a, b).Collect(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Fetched)
	require.Len(t, rep.Inserted, 4)
	assert.Equal(t, "B", rep.Inserted[1].Title, "first provider wins a duplicate URL")
	assert.Equal(t, "https://x.com/c", rep.Inserted[2].URL)
	assert.Equal(t, "MSFT", rep.Inserted[3].Symbol)
	assert.Equal(t, "gnews", rep.Inserted[3].Source)
	assert.Empty(t, rep.Failures)

	for _, since := range a.since {
		assert.Equal(t, now.Add(-6*time.Hour), since)
	}
}

func TestCollect_SecondRunInsertsNothing(t *testing.T) {
	p := &stubProvider{name: "newsapi", items: map[string][]core.NewsItem{"AAPL": {item("https://x.com/a", "A")}}}
	store := newsstore.NewMemoryStore()
	c := collector(store, p)

	_, err := c.Collect(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	rep, err := c.Collect(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Fetched)
	assert.Empty(t, rep.Inserted)
}

func TestCollect_PartialFailure(t *testing.T) {
	ok := &stubProvider{name: "newsapi", items: map[string][]core.NewsItem{"AAPL": {item("https://x.com/a", "A")}}}
	bad := &stubProvider{name: "gnews", err: core.ErrRateLimited}

	rep, err := collector(newsstore.NewMemoryStore(), ok, bad).Collect(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Len(t, rep.Inserted, 1)
	require.Contains(t, rep.Failures, "gnews/AAPL")
	assert.True(t, errors.Is(rep.Failures["gnews/AAPL"], core.ErrRateLimited))
}

func TestCollect_AllFail(t *testing.T) {
	bad := &stubProvider{name: "gnews", err: core.ErrTransient}

	_, err := collector(newsstore.NewMemoryStore(), bad).Collect(context.Background(), []string{"AAPL", "MSFT"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrTransient))
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &stubProvider{name: "newsapi"}

	_, err := collector(newsstore.NewMemoryStore(), p).Collect(ctx, []string{"AAPL"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupe(t *testing.T) {
	out := Dedupe([]core.NewsItem{
		{URL: " https://x.com/a/ "},
		{URL: "https://x.com/a"},
		{URL: ""},
		{URL: "https://x.com/b#frag"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "https://x.com/a", out[0].URL)
	assert.Equal(t, "https://x.com/b", out[1].URL)
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "RELIANCE", Query("reliance.ns"))
	assert.Equal(t, "AAPL", Query("AAPL"))
}

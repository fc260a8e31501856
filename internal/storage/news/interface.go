// Package news persists news items and the sentiment scores attached to them.
// Both tables are append-only.
package news

import (
	"context"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// Store defines news persistence.
type Store interface {
	// AppendNews inserts items whose URL is not yet stored and returns the
	// inserted items with IDs assigned.
	AppendNews(ctx context.Context, items []core.NewsItem) ([]core.NewsItem, error)

	// Recent lists items for symbol published at or after since, newest first.
	Recent(ctx context.Context, symbol string, since time.Time, limit int) ([]core.NewsItem, error)

	// Unscored lists items that have no score from model, oldest first.
	Unscored(ctx context.Context, model string, limit int) ([]core.NewsItem, error)

	// AppendScores inserts sentiment scores.
	AppendScores(ctx context.Context, scores []core.SentimentScore) error

	// Scores lists every score recorded for a news item.
	Scores(ctx context.Context, newsItemID int64) ([]core.SentimentScore, error)
}

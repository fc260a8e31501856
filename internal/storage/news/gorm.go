package news

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newthinker/meridian/internal/core"
)

type newsItemModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	Symbol      string    `gorm:"column:symbol;index"`
	PublishedAt time.Time `gorm:"column:published_at;index"`
	Title       string    `gorm:"column:title"`
	Summary     string    `gorm:"column:summary;type:TEXT"`
	Source      string    `gorm:"column:source"`
	URL         string    `gorm:"column:url;uniqueIndex"`
}

func (newsItemModel) TableName() string { return "news_items" }

type sentimentScoreModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	NewsItemID   *int64    `gorm:"column:news_item_id;index"`
	SocialPostID string    `gorm:"column:social_post_id"`
	Model        string    `gorm:"column:model;index"`
	Score        float64   `gorm:"column:score"`
	Label        string    `gorm:"column:label"`
	ScoredAt     time.Time `gorm:"column:scored_at"`
}

func (sentimentScoreModel) TableName() string { return "sentiment_scores" }

// GormStore implements Store on gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates both tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&newsItemModel{}, &sentimentScoreModel{}); err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("migrating news tables: %w", err))
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) AppendNews(ctx context.Context, items []core.NewsItem) ([]core.NewsItem, error) {
	var inserted []core.NewsItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			row := newsItemModel{
				Symbol:      it.Symbol,
				PublishedAt: it.PublishedAt.UTC(),
				Title:       it.Title,
				Summary:     it.Summary,
				Source:      it.Source,
				URL:         it.URL,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "url"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			it.ID = row.ID
			inserted = append(inserted, it)
		}
		return nil
	})
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return inserted, nil
}

func (s *GormStore) Recent(ctx context.Context, symbol string, since time.Time, limit int) ([]core.NewsItem, error) {
	q := s.db.WithContext(ctx).
		Where("symbol = ? AND published_at >= ?", symbol, since.UTC()).
		Order("published_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []newsItemModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return toItems(rows), nil
}

func (s *GormStore) Unscored(ctx context.Context, model string, limit int) ([]core.NewsItem, error) {
	scored := s.db.Model(&sentimentScoreModel{}).
		Select("news_item_id").
		Where("model = ? AND news_item_id IS NOT NULL", model)

	q := s.db.WithContext(ctx).
		Where("id NOT IN (?)", scored).
		Order("published_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []newsItemModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return toItems(rows), nil
}

func (s *GormStore) AppendScores(ctx context.Context, scores []core.SentimentScore) error {
	if len(scores) == 0 {
		return nil
	}
	rows := make([]sentimentScoreModel, len(scores))
	for i, sc := range scores {
		rows[i] = sentimentScoreModel{
			NewsItemID:   sc.NewsItemID,
			SocialPostID: sc.SocialPostID,
			Model:        sc.Model,
			Score:        sc.Score,
			Label:        sc.Label,
			ScoredAt:     sc.ScoredAt.UTC(),
		}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	return nil
}

func (s *GormStore) Scores(ctx context.Context, newsItemID int64) ([]core.SentimentScore, error) {
	var rows []sentimentScoreModel
	err := s.db.WithContext(ctx).
		Where("news_item_id = ?", newsItemID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	out := make([]core.SentimentScore, len(rows))
	for i, r := range rows {
		out[i] = core.SentimentScore{
			ID:           r.ID,
			NewsItemID:   r.NewsItemID,
			SocialPostID: r.SocialPostID,
			Model:        r.Model,
			Score:        r.Score,
			Label:        r.Label,
			ScoredAt:     r.ScoredAt.UTC(),
		}
	}
	return out, nil
}

func toItems(rows []newsItemModel) []core.NewsItem {
	out := make([]core.NewsItem, len(rows))
	for i, r := range rows {
		out[i] = core.NewsItem{
			ID:          r.ID,
			Symbol:      r.Symbol,
			PublishedAt: r.PublishedAt.UTC(),
			Title:       r.Title,
			Summary:     r.Summary,
			Source:      r.Source,
			URL:         r.URL,
		}
	}
	return out
}

package decision

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/newthinker/meridian/internal/core"
)

type decisionModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Symbol     string    `gorm:"column:symbol;index"`
	Action     string    `gorm:"column:action;index"`
	Confidence float64   `gorm:"column:confidence"`
	BuyCount   int       `gorm:"column:buy_count"`
	SellCount  int       `gorm:"column:sell_count"`
	DecidedAt  time.Time `gorm:"column:decided_at;index"`
	// full decision including contributing signals
	Payload string `gorm:"column:payload;type:TEXT"`
}

func (decisionModel) TableName() string { return "decisions" }

// GormStore implements Store on gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the decisions table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&decisionModel{}); err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, d core.ConsensusDecision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	row := decisionModel{
		ID:         d.ID,
		Symbol:     d.Symbol,
		Action:     string(d.Action),
		Confidence: d.Confidence,
		BuyCount:   d.BuyCount,
		SellCount:  d.SellCount,
		DecidedAt:  d.DecidedAt.UTC(),
		Payload:    string(payload),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	return nil
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*core.ConsensusDecision, error) {
	var row decisionModel
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.Errorf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	d, err := decode(row)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *GormStore) List(ctx context.Context, filter ListFilter) ([]core.ConsensusDecision, error) {
	q := s.filtered(ctx, filter).Order("decided_at DESC")
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []decisionModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	out := make([]core.ConsensusDecision, 0, len(rows))
	for _, r := range rows {
		d, err := decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *GormStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	var n int64
	if err := s.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, core.WrapError(core.ErrStorage, err)
	}
	return int(n), nil
}

func (s *GormStore) filtered(ctx context.Context, filter ListFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&decisionModel{})
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", string(filter.Action))
	}
	if !filter.From.IsZero() {
		q = q.Where("decided_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("decided_at <= ?", filter.To.UTC())
	}
	return q
}

func decode(row decisionModel) (core.ConsensusDecision, error) {
	var d core.ConsensusDecision
	if err := json.Unmarshal([]byte(row.Payload), &d); err != nil {
		return d, core.WrapError(core.ErrStorage, err)
	}
	return d, nil
}

package ohlcv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/newthinker/meridian/internal/core"
)

var sourceName = regexp.MustCompile(`^[a-z0-9_]+$`)

type barModel struct {
	ID       int64           `gorm:"column:id;primaryKey"`
	Symbol   string          `gorm:"column:symbol;not null"`
	Interval string          `gorm:"column:bar_interval;not null"`
	TS       int64           `gorm:"column:ts;not null"`
	Open     decimal.Decimal `gorm:"column:open;type:TEXT"`
	High     decimal.Decimal `gorm:"column:high;type:TEXT"`
	Low      decimal.Decimal `gorm:"column:low;type:TEXT"`
	Close    decimal.Decimal `gorm:"column:close;type:TEXT"`
	Volume   int64           `gorm:"column:volume"`
}

type fetchLogModel struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	Symbol      string `gorm:"column:symbol;uniqueIndex:idx_fetch_log_key,priority:1"`
	Source      string `gorm:"column:source;uniqueIndex:idx_fetch_log_key,priority:2"`
	Interval    string `gorm:"column:bar_interval;uniqueIndex:idx_fetch_log_key,priority:3"`
	Exchange    string `gorm:"column:exchange"`
	AssetClass  string `gorm:"column:asset_class"`
	RangeStart  int64  `gorm:"column:range_start"`
	RangeEnd    int64  `gorm:"column:range_end"`
	FetchedAt   int64  `gorm:"column:fetched_at"`
	FreshForNS  int64  `gorm:"column:fresh_for_ns"`
	QualityJSON string `gorm:"column:quality_json;type:TEXT"`
}

func (fetchLogModel) TableName() string { return "fetch_log" }

// GormStore keeps one bar table per source (ohlcv_<source>) unique on
// (symbol, bar_interval, ts), plus a fetch_log row per key.
type GormStore struct {
	db       *gorm.DB
	migrated sync.Map // table name -> struct{}
}

// NewGormStore migrates the fetch log and returns a store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&fetchLogModel{}); err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("migrating fetch_log: %w", err))
	}
	return &GormStore{db: db}, nil
}

// TableFor returns the bar table name for a source.
func TableFor(source string) (string, error) {
	name := strings.ToLower(source)
	if !sourceName.MatchString(name) {
		return "", core.Errorf(core.ErrStorage, "invalid source name %q", source)
	}
	return "ohlcv_" + name, nil
}

func (s *GormStore) ensureTable(db *gorm.DB, table string) error {
	if _, ok := s.migrated.Load(table); ok {
		return nil
	}
	if err := db.Table(table).AutoMigrate(&barModel{}); err != nil {
		return fmt.Errorf("migrating %s: %w", table, err)
	}
	// index names are global in sqlite, so name it after the table
	stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_key ON %s (symbol, bar_interval, ts)", table, table)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("indexing %s: %w", table, err)
	}
	s.migrated.Store(table, struct{}{})
	return nil
}

func (s *GormStore) GetLatest(ctx context.Context, inst core.Instrument, source string, interval core.Interval) (core.FetchResult, bool, error) {
	table, err := TableFor(source)
	if err != nil {
		return core.FetchResult{}, false, err
	}

	var log fetchLogModel
	err = s.db.WithContext(ctx).
		Where("symbol = ? AND source = ? AND bar_interval = ?", inst.Symbol, source, string(interval)).
		Take(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.FetchResult{}, false, nil
	}
	if err != nil {
		return core.FetchResult{}, false, core.WrapError(core.ErrStorage, err)
	}

	var rows []barModel
	err = s.db.WithContext(ctx).Table(table).
		Where("symbol = ? AND bar_interval = ? AND ts >= ? AND ts < ?", inst.Symbol, string(interval), log.RangeStart, log.RangeEnd).
		Order("ts ASC").
		Find(&rows).Error
	if err != nil {
		return core.FetchResult{}, false, core.WrapError(core.ErrStorage, err)
	}

	var quality core.QualityReport
	if log.QualityJSON != "" {
		if err := json.Unmarshal([]byte(log.QualityJSON), &quality); err != nil {
			return core.FetchResult{}, false, core.WrapError(core.ErrStorage, fmt.Errorf("decoding quality: %w", err))
		}
	}

	bars := make([]core.Bar, len(rows))
	for i, r := range rows {
		bars[i] = core.Bar{
			Time:   time.Unix(r.TS, 0).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	stored := core.Instrument{Symbol: log.Symbol, Exchange: log.Exchange, AssetClass: core.AssetClass(log.AssetClass)}
	return core.FetchResult{
		Series:    core.NewSeries(stored, interval, bars),
		Source:    source,
		FetchedAt: time.Unix(0, log.FetchedAt).UTC(),
		FreshFor:  time.Duration(log.FreshForNS),
		Quality:   quality,
	}, true, nil
}

func (s *GormStore) Put(ctx context.Context, r core.FetchResult) error {
	table, err := TableFor(r.Source)
	if err != nil {
		return err
	}
	quality, err := json.Marshal(r.Quality)
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}

	inst := r.Series.Instrument
	rows := make([]barModel, len(r.Series.Bars))
	for i, b := range r.Series.Bars {
		rows[i] = barModel{
			Symbol:   inst.Symbol,
			Interval: string(r.Series.Interval),
			TS:       b.Time.Unix(),
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   b.Volume,
		}
	}
	span := r.Series.Span()
	log := fetchLogModel{
		Symbol:      inst.Symbol,
		Source:      r.Source,
		Interval:    string(r.Series.Interval),
		Exchange:    inst.Exchange,
		AssetClass:  string(inst.AssetClass),
		RangeStart:  span.Start.Unix(),
		RangeEnd:    span.End.Unix(),
		FetchedAt:   r.FetchedAt.UnixNano(),
		FreshForNS:  int64(r.FreshFor),
		QualityJSON: string(quality),
	}

	if err := s.ensureTable(s.db.WithContext(ctx), table); err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			err := tx.Table(table).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "symbol"}, {Name: "bar_interval"}, {Name: "ts"}},
				DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
			}).CreateInBatches(&rows, 500).Error
			if err != nil {
				return fmt.Errorf("upserting bars: %w", err)
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "source"}, {Name: "bar_interval"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"exchange", "asset_class", "range_start", "range_end", "fetched_at", "fresh_for_ns", "quality_json",
			}),
		}).Create(&log).Error
	})
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	return nil
}


// Package ohlcv persists fetch results keyed by (instrument, source, interval).
package ohlcv

import (
	"context"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// Gateway is the read-through/write-through store used by the source manager.
// Errors wrap core.ErrStorage.
type Gateway interface {
	// GetLatest returns the most recent result stored for the key; the bool
	// is false when nothing is stored.
	GetLatest(ctx context.Context, inst core.Instrument, source string, interval core.Interval) (core.FetchResult, bool, error)

	// Put stores r, replacing bars with the same timestamp.
	Put(ctx context.Context, r core.FetchResult) error
}

// snapshot is the serialized form of a FetchResult.
type snapshot struct {
	Symbol     string             `json:"symbol"`
	Exchange   string             `json:"exchange,omitempty"`
	AssetClass core.AssetClass    `json:"asset_class"`
	Interval   core.Interval      `json:"interval"`
	Source     string             `json:"source"`
	FetchedAt  time.Time          `json:"fetched_at"`
	FreshFor   time.Duration      `json:"fresh_for"`
	Quality    core.QualityReport `json:"quality"`
	Bars       []core.Bar         `json:"bars"`
}

func toSnapshot(r core.FetchResult) snapshot {
	return snapshot{
		Symbol:     r.Series.Instrument.Symbol,
		Exchange:   r.Series.Instrument.Exchange,
		AssetClass: r.Series.Instrument.AssetClass,
		Interval:   r.Series.Interval,
		Source:     r.Source,
		FetchedAt:  r.FetchedAt,
		FreshFor:   r.FreshFor,
		Quality:    r.Quality,
		Bars:       r.Series.Bars,
	}
}

func (s snapshot) result() core.FetchResult {
	inst := core.Instrument{Symbol: s.Symbol, Exchange: s.Exchange, AssetClass: s.AssetClass}
	return core.FetchResult{
		Series:    core.NewSeries(inst, s.Interval, s.Bars),
		Source:    s.Source,
		FetchedAt: s.FetchedAt,
		FreshFor:  s.FreshFor,
		Quality:   s.Quality,
	}
}

// Package pipeline wires resolution, strategy evaluation and consensus into
// the two engine variants selected by engine.mode.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/newthinker/meridian/internal/consensus"
	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/source"
	"github.com/newthinker/meridian/internal/strategy"
)

const (
	ModeClassic     = "classic"
	ModeMultiSource = "multi_source"
)

// Modes lists the supported engine variants.
var Modes = []string{ModeClassic, ModeMultiSource}

// Pipeline turns one instrument into a consensus decision.
type Pipeline interface {
	Name() string
	Run(ctx context.Context, inst core.Instrument) (Result, error)
}

// Resolver is the part of the source manager a pipeline needs.
type Resolver interface {
	Resolve(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange, p source.Policy) (core.FetchResult, error)
	ResolveAll(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange, p source.Policy) ([]core.FetchResult, error)
}

// Result is everything one run produced for an instrument.
type Result struct {
	Instrument core.Instrument
	Decision   core.ConsensusDecision
	Fetches    []core.FetchResult
	Signals    map[string][]core.Signal
	Elapsed    time.Duration
}

// Sources returns the sources that served data, in fetch order.
func (r Result) Sources() []string {
	out := make([]string, len(r.Fetches))
	for i, f := range r.Fetches {
		out[i] = f.Source
	}
	return out
}

// Warnings flattens non-fatal problems reported by the fetches.
func (r Result) Warnings() []string {
	var out []string
	for _, f := range r.Fetches {
		for _, w := range f.Warnings {
			out = append(out, fmt.Sprintf("%s: %v", f.Source, w))
		}
	}
	return out
}

// Deps holds the collaborators shared by every pipeline.
type Deps struct {
	Resolver     Resolver
	Strategies   *strategy.Engine
	Consensus    *consensus.Engine
	Policy       source.Policy
	Interval     core.Interval
	LookbackDays int
	Clock        clock.Clock
	Logger       *zap.Logger
}

// New returns the pipeline registered under mode.
func New(mode string, deps Deps) (Pipeline, error) {
	if deps.Resolver == nil || deps.Strategies == nil || deps.Consensus == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "pipeline %s: resolver, strategies and consensus are required", mode)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Interval == "" {
		deps.Interval = core.Interval1d
	}
	if deps.LookbackDays <= 0 {
		deps.LookbackDays = 365
	}

	base := runner{deps: deps}
	switch mode {
	case ModeClassic:
		return &classic{base}, nil
	case ModeMultiSource:
		return &multiSource{base}, nil
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown engine mode %q (want one of %v)", mode, Modes)
	}
}

type runner struct {
	deps Deps
}

// window ends one bar past the current bar so today's bar is included.
func (r runner) window() core.TimeRange {
	width := r.deps.Interval.Duration()
	end := r.deps.Clock.Now().UTC().Truncate(width).Add(width)
	return core.LastDays(end, r.deps.LookbackDays)
}

// decide evaluates every fetched series and folds the signals into one decision.
func (r runner) decide(ctx context.Context, inst core.Instrument, fetches []core.FetchResult, started time.Time) (Result, error) {
	series := make(map[string]core.Series, len(fetches))
	quality := make(map[string]float64, len(fetches))
	for _, f := range fetches {
		series[f.Source] = f.Series
		quality[f.Source] = f.Quality.Overall
	}

	signals, err := r.deps.Strategies.EvaluateSources(ctx, series)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate %s: %w", inst.Symbol, err)
	}

	d := r.deps.Consensus.Consensus(inst.Symbol, signals)
	d.QualityBySource = quality

	res := Result{
		Instrument: inst,
		Decision:   d,
		Fetches:    fetches,
		Signals:    signals,
		Elapsed:    r.deps.Clock.Since(started),
	}
	r.deps.Logger.Debug("decision",
		zap.String("symbol", inst.Symbol),
		zap.String("action", string(d.Action)),
		zap.Float64("confidence", d.Confidence),
		zap.Int("signals", d.TotalSignals),
		zap.Strings("sources", d.Sources),
	)
	return res, nil
}

// classic resolves the single best source under the configured policy.
type classic struct{ runner }

func (p *classic) Name() string { return ModeClassic }

func (p *classic) Run(ctx context.Context, inst core.Instrument) (Result, error) {
	started := p.deps.Clock.Now()
	fr, err := p.deps.Resolver.Resolve(ctx, inst, p.deps.Interval, p.window(), p.deps.Policy)
	if err != nil {
		return Result{Instrument: inst}, err
	}
	return p.decide(ctx, inst, []core.FetchResult{fr}, started)
}

// multiSource evaluates every acceptable source and takes consensus across them.
type multiSource struct{ runner }

func (p *multiSource) Name() string { return ModeMultiSource }

func (p *multiSource) Run(ctx context.Context, inst core.Instrument) (Result, error) {
	started := p.deps.Clock.Now()
	pol := p.deps.Policy
	pol.Mode = source.ModeAll
	fetches, err := p.deps.Resolver.ResolveAll(ctx, inst, p.deps.Interval, p.window(), pol)
	if err != nil {
		return Result{Instrument: inst}, err
	}
	return p.decide(ctx, inst, fetches, started)
}

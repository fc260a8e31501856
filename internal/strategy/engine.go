package strategy

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/meridian/internal/core"
)

// Engine runs registered evaluators. Registration order is evaluation and
// report order.
type Engine struct {
	mu         sync.RWMutex
	evaluators []Evaluator
	byName     map[string]Evaluator
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		byName: make(map[string]Evaluator),
		logger: l,
	}
}

// Register adds an evaluator; a second one with the same name replaces the first in place.
func (e *Engine) Register(ev Evaluator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byName[ev.Name()]; ok {
		for i, existing := range e.evaluators {
			if existing.Name() == ev.Name() {
				e.evaluators[i] = ev
			}
		}
	} else {
		e.evaluators = append(e.evaluators, ev)
	}
	e.byName[ev.Name()] = ev
}

// Get retrieves an evaluator by name
func (e *Engine) Get(name string) (Evaluator, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ev, ok := e.byName[name]
	return ev, ok
}

// GetAll returns the evaluators in registration order
func (e *Engine) GetAll() []Evaluator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Evaluator, len(e.evaluators))
	copy(out, e.evaluators)
	return out
}

// MinBars returns the largest MinBars across evaluators.
func (e *Engine) MinBars() int {
	n := 0
	for _, ev := range e.GetAll() {
		if ev.MinBars() > n {
			n = ev.MinBars()
		}
	}
	return n
}

// Evaluate runs every evaluator on one source's series.
func (e *Engine) Evaluate(ctx context.Context, source string, s core.Series) ([]core.Signal, error) {
	out, err := e.EvaluateSources(ctx, map[string]core.Series{source: s})
	if err != nil {
		return nil, err
	}
	return out[source], nil
}

// EvaluateSources runs every (source, evaluator) pair in parallel. Each
// evaluator sees its own clone of the series. Signals are stamped with the
// strategy and source that produced them and listed in registration order.
func (e *Engine) EvaluateSources(ctx context.Context, series map[string]core.Series) (map[string][]core.Signal, error) {
	evaluators := e.GetAll()

	sources := make([]string, 0, len(series))
	for src := range series {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	slots := make([][][]core.Signal, len(sources))
	for i := range slots {
		slots[i] = make([][]core.Signal, len(evaluators))
	}

	g, gctx := errgroup.WithContext(ctx)
	for si, src := range sources {
		for ei, ev := range evaluators {
			s := series[src].Clone()
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				signals := ev.Evaluate(s)
				for i := range signals {
					signals[i].Strategy = ev.Name()
					signals[i].Source = src
					if signals[i].Symbol == "" {
						signals[i].Symbol = s.Instrument.Symbol
					}
				}
				slots[si][ei] = signals
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]core.Signal, len(sources))
	for si, src := range sources {
		var all []core.Signal
		for ei := range evaluators {
			all = append(all, slots[si][ei]...)
		}
		out[src] = all
		e.logger.Debug("evaluated",
			zap.String("source", src),
			zap.String("symbol", series[src].Instrument.Symbol),
			zap.Int("bars", series[src].Len()),
			zap.Int("signals", len(all)))
	}
	return out, nil
}

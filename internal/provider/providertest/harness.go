package providertest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
)

// Case describes what the adapter under test is expected to serve.
type Case struct {
	Interval core.Interval
	Range    core.TimeRange
	// Known instruments must fetch successfully.
	Known []core.Instrument
	// Unknown must fail with an error from the taxonomy.
	Unknown core.Instrument
}

// InTaxonomy reports whether err belongs to the provider error set.
func InTaxonomy(err error) bool {
	for _, base := range []error{core.ErrRateLimited, core.ErrNotFound, core.ErrTransient, core.ErrMalformed} {
		if errors.Is(err, base) {
			return true
		}
	}
	return false
}

// Run checks the adapter contract: sorted unique timestamps, taxonomy
// errors, and concurrent fetches for different instruments.
func Run(t *testing.T, p provider.Provider, c Case) {
	t.Helper()
	ctx := context.Background()

	t.Run("name", func(t *testing.T) {
		if p.Name() == "" {
			t.Error("provider name must not be empty")
		}
	})

	t.Run("ordered", func(t *testing.T) {
		for _, inst := range c.Known {
			s, err := p.Fetch(ctx, inst, c.Interval, c.Range)
			if err != nil {
				t.Fatalf("Fetch(%s) failed: %v", inst.Symbol, err)
			}
			checkSeries(t, s, inst)
		}
	})

	t.Run("taxonomy", func(t *testing.T) {
		if c.Unknown.Symbol == "" {
			t.Skip("no unknown instrument configured")
		}
		_, err := p.Fetch(ctx, c.Unknown, c.Interval, c.Range)
		if err == nil {
			t.Fatalf("Fetch(%s) should fail", c.Unknown.Symbol)
		}
		if !InTaxonomy(err) {
			t.Errorf("error outside taxonomy: %v", err)
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]core.Series, len(c.Known))
		errs := make([]error, len(c.Known))
		for i, inst := range c.Known {
			wg.Add(1)
			go func(i int, inst core.Instrument) {
				defer wg.Done()
				results[i], errs[i] = p.Fetch(ctx, inst, c.Interval, c.Range)
			}(i, inst)
		}
		wg.Wait()
		for i, inst := range c.Known {
			if errs[i] != nil {
				t.Errorf("concurrent Fetch(%s) failed: %v", inst.Symbol, errs[i])
				continue
			}
			checkSeries(t, results[i], inst)
		}
	})
}

func checkSeries(t *testing.T, s core.Series, inst core.Instrument) {
	t.Helper()
	if s.Instrument.Symbol != inst.Symbol {
		t.Errorf("expected instrument %s, got %s", inst.Symbol, s.Instrument.Symbol)
	}
	if s.Len() == 0 {
		t.Errorf("expected bars for %s", inst.Symbol)
	}
	for i := 1; i < s.Len(); i++ {
		if !s.Bars[i].Time.After(s.Bars[i-1].Time) {
			t.Errorf("%s: timestamps not strictly increasing at %d", inst.Symbol, i)
		}
	}
}

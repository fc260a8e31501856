package providertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/meridian/internal/core"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_Conformance(t *testing.T) {
	f := NewFake("fake", Flat(day0, 30, 100))
	Run(t, f, Case{
		Interval: core.Interval1d,
		Range:    core.NewTimeRange(day0, day0.AddDate(0, 0, 30)),
		Known:    []core.Instrument{core.ParseInstrument("AAPL"), core.ParseInstrument("MSFT")},
		Unknown:  core.ParseInstrument("NOPE"),
	})
}

func TestFake_Script(t *testing.T) {
	f := NewFake("fake", Flat(day0, 10, 100)).Script(
		Step{Err: core.ErrRateLimited},
		Step{Err: core.ErrTransient},
	)
	inst := core.ParseInstrument("AAPL")
	rng := core.NewTimeRange(day0, day0.AddDate(0, 0, 10))

	_, err := f.Fetch(context.Background(), inst, core.Interval1d, rng)
	assert.ErrorIs(t, err, core.ErrRateLimited)
	_, err = f.Fetch(context.Background(), inst, core.Interval1d, rng)
	assert.ErrorIs(t, err, core.ErrTransient)
	s, err := f.Fetch(context.Background(), inst, core.Interval1d, rng)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Len())
	assert.Equal(t, 3, f.Calls())
	assert.Len(t, f.Ranges(), 3)
}

func TestFake_SlicesRange(t *testing.T) {
	f := NewFake("fake", Flat(day0, 10, 100))
	s, err := f.Fetch(context.Background(), core.ParseInstrument("AAPL"), core.Interval1d,
		core.NewTimeRange(day0.AddDate(0, 0, 7), day0.AddDate(0, 0, 20)))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestFake_LatencyHonoursDeadline(t *testing.T) {
	f := NewFake("slow", Flat(day0, 10, 100)).WithLatency(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, core.ParseInstrument("AAPL"), core.Interval1d, core.NewTimeRange(day0, day0.AddDate(0, 0, 10)))
	assert.ErrorIs(t, err, core.ErrTransient)
}

package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/meridian/internal/core"
)

func TestReportPath(t *testing.T) {
	at := time.Date(2024, 6, 3, 23, 30, 0, 0, time.FixedZone("X", -4*3600))
	assert.Equal(t, "reports/2024-06-04/run-1.json", ReportPath(at, "run-1"))
}

func TestArchiver_WriteReadPrune(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := NewArchiver(store)
	ctx := context.Background()

	day := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	report := RunReport{
		RunID:     "r1",
		StartedAt: day,
		Mode:      "classic",
		Instruments: []InstrumentOutcome{{
			Symbol:   "AAPL",
			Pipeline: "classic",
			Decision: &core.ConsensusDecision{ID: "d1", Symbol: "AAPL", Action: core.ActionBuy, Confidence: 1},
		}},
	}
	p, err := a.WriteReport(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, "reports/2024-06-03/r1.json", p)

	got, err := a.ReadReport(ctx, p)
	require.NoError(t, err)
	require.Len(t, got.Instruments, 1)
	assert.Equal(t, core.ActionBuy, got.Instruments[0].Decision.Action)

	older := report
	older.RunID = "r0"
	older.StartedAt = day.AddDate(0, 0, -10)
	_, err = a.WriteReport(ctx, older)
	require.NoError(t, err)

	removed, err := a.Prune(ctx, day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left, err := store.List(ctx, "reports")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/2024-06-03/r1.json"}, left)
}

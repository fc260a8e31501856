package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// InstrumentOutcome is one watchlist entry's result within a run.
type InstrumentOutcome struct {
	Symbol    string                  `json:"symbol"`
	Pipeline  string                  `json:"pipeline"`
	Sources   []string                `json:"sources,omitempty"`
	Quality   map[string]float64      `json:"quality,omitempty"`
	Decision  *core.ConsensusDecision `json:"decision,omitempty"`
	Skipped   bool                    `json:"skipped,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Warnings  []string                `json:"warnings,omitempty"`
	ElapsedMS int64                   `json:"elapsed_ms"`
}

// RunReport summarizes one analysis cycle.
type RunReport struct {
	RunID       string              `json:"run_id"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	Mode        string              `json:"mode"`
	Instruments []InstrumentOutcome `json:"instruments"`
}

const reportRoot = "reports"

// ReportPath returns reports/<yyyy-mm-dd>/<run-id>.json.
func ReportPath(startedAt time.Time, runID string) string {
	return path.Join(reportRoot, startedAt.UTC().Format("2006-01-02"), runID+".json")
}

// Archiver writes run reports to a Storage.
type Archiver struct {
	store Storage
}

func NewArchiver(store Storage) *Archiver {
	return &Archiver{store: store}
}

// WriteReport stores r and returns its path.
func (a *Archiver) WriteReport(ctx context.Context, r RunReport) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrStorage, err)
	}
	p := ReportPath(r.StartedAt, r.RunID)
	if err := a.store.Write(ctx, p, data); err != nil {
		return "", fmt.Errorf("write report %s: %w", p, err)
	}
	return p, nil
}

func (a *Archiver) ReadReport(ctx context.Context, p string) (RunReport, error) {
	var r RunReport
	data, err := a.store.Read(ctx, p)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, core.WrapError(core.ErrStorage, err)
	}
	return r, nil
}

// Prune deletes reports dated strictly before the given day and returns how many were removed.
func (a *Archiver) Prune(ctx context.Context, before time.Time) (int, error) {
	paths, err := a.store.List(ctx, reportRoot)
	if err != nil {
		return 0, err
	}
	cutoff := before.UTC().Format("2006-01-02")
	removed := 0
	for _, p := range paths {
		parts := strings.Split(p, "/")
		if len(parts) < 3 || parts[0] != reportRoot {
			continue
		}
		if parts[1] >= cutoff {
			continue
		}
		if err := a.store.Delete(ctx, p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

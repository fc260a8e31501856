// Package quality scores normalized series for completeness, OHLC
// consistency and return anomalies.
package quality

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/newthinker/meridian/internal/core"
)

// Recommendation texts.
const (
	RecommendCompleteness = "increase date range or switch source"
	RecommendConsistency  = "clean OHLC violations or switch source"
	RecommendAnomalies    = "review flagged return outliers before use"
	RecommendEmpty        = "no data returned; switch source"
)

// minReturnsForIQR is the smallest sample the quartile fences are computed on.
const minReturnsForIQR = 4

// Analyzer is a pure scorer; it never mutates or drops bars.
type Analyzer struct {
	cfg      Config
	holidays map[string]struct{}
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(cfg Config) *Analyzer {
	h := make(map[string]struct{}, len(cfg.Holidays))
	for _, d := range cfg.Holidays {
		h[d.UTC().Format(time.DateOnly)] = struct{}{}
	}
	return &Analyzer{cfg: cfg, holidays: h}
}

// Analyze scores the part of s that falls inside rng.
func (a *Analyzer) Analyze(s core.Series, rng core.TimeRange) core.QualityReport {
	in := s.Slice(rng)
	report := core.QualityReport{
		Expected: a.ExpectedBars(s.Instrument, s.Interval, rng),
		Observed: in.Len(),
	}

	if in.Len() == 0 {
		report.Recommendations = []string{RecommendEmpty}
		return report
	}

	report.Completeness = 1
	if report.Expected > 0 {
		report.Completeness = math.Min(1, float64(report.Observed)/float64(report.Expected))
	}

	for _, b := range in.Bars {
		if !b.Valid() {
			report.InvalidBars++
		}
	}
	report.Consistency = float64(in.Len()-report.InvalidBars) / float64(in.Len())

	returns, times := periodReturns(in)
	report.Anomalies = a.anomalies(returns, times)
	report.AnomalyScore = 1
	if len(returns) > 0 {
		report.AnomalyScore = 1 - float64(len(report.Anomalies))/float64(len(returns))
	}

	report.Overall = a.overall(report)
	report.Recommendations = a.recommend(report)
	return report
}

func (a *Analyzer) overall(r core.QualityReport) float64 {
	w := a.cfg.Weights
	sum := w.Completeness + w.Consistency + w.Anomaly
	if sum <= 0 {
		return clamp((r.Completeness + r.Consistency + r.AnomalyScore) / 3)
	}
	return clamp((w.Completeness*r.Completeness + w.Consistency*r.Consistency + w.Anomaly*r.AnomalyScore) / sum)
}

func (a *Analyzer) recommend(r core.QualityReport) []string {
	type check struct {
		score, threshold float64
		text             string
	}
	checks := []check{
		{r.Completeness, a.cfg.CompletenessThreshold, RecommendCompleteness},
		{r.Consistency, a.cfg.ConsistencyThreshold, RecommendConsistency},
		{r.AnomalyScore, a.cfg.AnomalyThreshold, RecommendAnomalies},
	}
	failing := checks[:0]
	for _, c := range checks {
		if c.score < c.threshold {
			failing = append(failing, c)
		}
	}
	sort.SliceStable(failing, func(i, j int) bool { return failing[i].score < failing[j].score })

	var out []string
	for _, c := range failing {
		out = append(out, c.text)
	}
	return out
}

func periodReturns(s core.Series) ([]float64, []time.Time) {
	closes := s.Closes()
	returns := make([]float64, 0, len(closes))
	times := make([]time.Time, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
		times = append(times, s.Bars[i].Time)
	}
	return returns, times
}

func (a *Analyzer) anomalies(returns []float64, times []time.Time) []core.Anomaly {
	if len(returns) < minReturnsForIQR {
		return nil
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - a.cfg.IQRFactor*iqr
	upper := q3 + a.cfg.IQRFactor*iqr

	var out []core.Anomaly
	for i, r := range returns {
		switch {
		case r < lower:
			out = append(out, core.Anomaly{Time: times[i], Return: r,
				Reason: fmt.Sprintf("return %.4f below lower fence %.4f", r, lower)})
		case r > upper:
			out = append(out, core.Anomaly{Time: times[i], Return: r,
				Reason: fmt.Sprintf("return %.4f above upper fence %.4f", r, upper)})
		}
	}
	return out
}

// quantile interpolates linearly between closest ranks of a sorted sample.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

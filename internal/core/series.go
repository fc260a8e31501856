package core

import (
	"sort"
	"time"
)

// Series is an ordered run of bars for one (instrument, interval) pair.
// Timestamps are strictly increasing once built through NewSeries.
type Series struct {
	Instrument Instrument
	Interval   Interval
	Bars       []Bar
}

// NewSeries copies bars, normalizes timestamps to UTC, sorts them and drops
// duplicate timestamps keeping the element that appeared last in the input.
func NewSeries(inst Instrument, interval Interval, bars []Bar) Series {
	out := make([]Bar, len(bars))
	copy(out, bars)
	for i := range out {
		out[i].Time = out[i].Time.UTC()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, b := range out {
		n := len(deduped)
		if n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return Series{Instrument: inst, Interval: interval, Bars: deduped}
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Clone returns a deep copy so callers never alias the manager's slice.
func (s Series) Clone() Series {
	bars := make([]Bar, len(s.Bars))
	copy(bars, s.Bars)
	s.Bars = bars
	return s
}

// Span returns the covered range, End being one interval past the last bar.
func (s Series) Span() TimeRange {
	if len(s.Bars) == 0 {
		return TimeRange{}
	}
	return TimeRange{
		Start: s.Bars[0].Time,
		End:   s.Bars[len(s.Bars)-1].Time.Add(s.Interval.Duration()),
	}
}

// Covers reports whether the series spans the whole range, allowing for a
// leading gap of up to maxLead (weekends, holidays before the first bar) and
// a trailing gap of up to maxTrail (non-trading days or an unpublished
// current bar after the last one).
func (s Series) Covers(r TimeRange, maxLead, maxTrail time.Duration) bool {
	if len(s.Bars) == 0 {
		return r.Empty()
	}
	span := s.Span()
	return !span.Start.After(r.Start.Add(maxLead)) && !span.End.Before(r.End.Add(-maxTrail))
}

// Slice returns the bars inside r as a new series.
func (s Series) Slice(r TimeRange) Series {
	bars := make([]Bar, 0, len(s.Bars))
	for _, b := range s.Bars {
		if r.Contains(b.Time) {
			bars = append(bars, b)
		}
	}
	return Series{Instrument: s.Instrument, Interval: s.Interval, Bars: bars}
}

// Closes returns the close prices as float64 for indicator math.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

// Last returns the final bar and whether one exists.
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Merge unions two series by timestamp; on duplicates the bar from newer wins.
func Merge(older, newer Series) Series {
	bars := make([]Bar, 0, len(older.Bars)+len(newer.Bars))
	bars = append(bars, older.Bars...)
	bars = append(bars, newer.Bars...)
	inst, iv := newer.Instrument, newer.Interval
	if inst.Symbol == "" {
		inst, iv = older.Instrument, older.Interval
	}
	return NewSeries(inst, iv, bars)
}

// Anomaly is a bar whose single-period return falls outside the expected band.
type Anomaly struct {
	Time   time.Time `json:"time"`
	Return float64   `json:"return"`
	Reason string    `json:"reason"`
}

// QualityReport scores one series.
type QualityReport struct {
	Completeness    float64   `json:"completeness"`
	Consistency     float64   `json:"consistency"`
	AnomalyScore    float64   `json:"anomaly_score"`
	Overall         float64   `json:"overall"`
	Expected        int       `json:"expected"`
	Observed        int       `json:"observed"`
	InvalidBars     int       `json:"invalid_bars"`
	Anomalies       []Anomaly `json:"anomalies,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// AnomalyCount returns the number of flagged bars.
func (q QualityReport) AnomalyCount() int { return len(q.Anomalies) }

// FetchResult is the outcome of one successful provider call or cache hit.
type FetchResult struct {
	Series    Series
	Source    string
	FetchedAt time.Time
	Quality   QualityReport
	FreshFor  time.Duration
	FromCache bool
	// Warnings carries non-fatal problems such as a failed cache write.
	Warnings []error
}

// Fresh reports whether the result is still inside its freshness window.
func (r FetchResult) Fresh(now time.Time) bool {
	if r.FreshFor <= 0 {
		return false
	}
	return now.Before(r.FetchedAt.Add(r.FreshFor))
}

// Clone returns a copy that shares no mutable state with r.
func (r FetchResult) Clone() FetchResult {
	r.Series = r.Series.Clone()
	if r.Warnings != nil {
		w := make([]error, len(r.Warnings))
		copy(w, r.Warnings)
		r.Warnings = w
	}
	if r.Quality.Anomalies != nil {
		a := make([]Anomaly, len(r.Quality.Anomalies))
		copy(a, r.Quality.Anomalies)
		r.Quality.Anomalies = a
	}
	if r.Quality.Recommendations != nil {
		rec := make([]string, len(r.Quality.Recommendations))
		copy(rec, r.Quality.Recommendations)
		r.Quality.Recommendations = rec
	}
	return r
}

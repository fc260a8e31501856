package quality

import (
	"time"

	"github.com/newthinker/meridian/internal/core"
)

const day = 24 * time.Hour

// ExpectedBars counts the interval slots in rng. Weekends and holidays are
// excluded unless the instrument trades around the clock.
func (a *Analyzer) ExpectedBars(inst core.Instrument, iv core.Interval, rng core.TimeRange) int {
	if rng.Empty() {
		return 0
	}
	step := iv.Duration()
	if inst.AssetClass == core.AssetCrypto || iv == core.Interval1w {
		return int((rng.End.Sub(rng.Start) + step - 1) / step)
	}

	days := a.tradingDays(rng)
	if !iv.Intraday() {
		return days
	}
	perDay := int(a.cfg.SessionLength / step)
	if perDay < 1 {
		perDay = 1
	}
	return days * perDay
}

// tradingDays counts calendar days overlapping rng that are not excluded.
func (a *Analyzer) tradingDays(rng core.TimeRange) int {
	n := 0
	first := rng.Start.Truncate(day)
	for d := first; d.Before(rng.End); d = d.Add(day) {
		if a.tradingDay(d) {
			n++
		}
	}
	return n
}

func (a *Analyzer) tradingDay(d time.Time) bool {
	if a.cfg.ExcludeWeekends {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	_, holiday := a.holidays[d.Format(time.DateOnly)]
	return !holiday
}

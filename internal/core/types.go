package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass represents the type of financial asset
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetETF    AssetClass = "etf"
	AssetIndex  AssetClass = "index"
	AssetCrypto AssetClass = "crypto"
)

// Instrument identifies a tradable symbol plus its market metadata.
type Instrument struct {
	Symbol     string
	Exchange   string // suffix such as "NS", "HK"; empty for US listings
	AssetClass AssetClass
}

// ParseInstrument splits an exchange suffix off a symbol ("RELIANCE.NS").
func ParseInstrument(symbol string) Instrument {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	inst := Instrument{Symbol: symbol, AssetClass: AssetEquity}
	if i := strings.LastIndex(symbol, "."); i > 0 && i < len(symbol)-1 {
		inst.Exchange = symbol[i+1:]
	}
	return inst
}

// WithAssetClass returns a copy with the asset class replaced.
func (i Instrument) WithAssetClass(ac AssetClass) Instrument {
	i.AssetClass = ac
	return i
}

// Root returns the symbol without its exchange suffix.
func (i Instrument) Root() string {
	if i.Exchange == "" {
		return i.Symbol
	}
	return strings.TrimSuffix(i.Symbol, "."+i.Exchange)
}

func (i Instrument) String() string { return i.Symbol }

// Interval is a bar width such as "1d".
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// Duration returns the width of one bar.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Intraday reports whether the interval is shorter than a day.
func (iv Interval) Intraday() bool {
	return iv.Duration() < 24*time.Hour
}

// Valid reports whether the interval is one of the known widths.
func (iv Interval) Valid() bool {
	switch iv {
	case Interval1m, Interval5m, Interval15m, Interval1h, Interval1d, Interval1w:
		return true
	}
	return false
}

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange builds a range normalized to UTC.
func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start.UTC(), End: end.UTC()}
}

// LastDays returns the range covering the given number of days up to end.
func LastDays(end time.Time, days int) TimeRange {
	return NewTimeRange(end.AddDate(0, 0, -days), end)
}

// Empty reports whether the range covers no time.
func (r TimeRange) Empty() bool {
	return !r.End.After(r.Start)
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Missing returns the parts of r not covered by cover, at most one before and one after.
func (r TimeRange) Missing(cover TimeRange) []TimeRange {
	if cover.Empty() || !cover.End.After(r.Start) || !cover.Start.Before(r.End) {
		return []TimeRange{r}
	}
	var out []TimeRange
	if cover.Start.After(r.Start) {
		out = append(out, TimeRange{Start: r.Start, End: cover.Start})
	}
	if cover.End.Before(r.End) {
		out = append(out, TimeRange{Start: cover.End, End: r.End})
	}
	return out
}

// Bar is one OHLCV sample.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Valid checks low <= min(open,close) <= max(open,close) <= high with
// non-negative prices and volume.
func (b Bar) Valid() bool {
	if b.Volume < 0 {
		return false
	}
	if b.Low.IsNegative() || b.Open.IsNegative() || b.Close.IsNegative() || b.High.IsNegative() {
		return false
	}
	lo := decimal.Min(b.Open, b.Close)
	hi := decimal.Max(b.Open, b.Close)
	return b.Low.LessThanOrEqual(lo) && hi.LessThanOrEqual(b.High)
}

// Direction is the side of a strategy signal.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Action represents a consensus decision
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal represents one strategy's directional output for one series
type Signal struct {
	Symbol    string
	Strategy  string
	Source    string
	Direction Direction
	Strength  float64
	Price     float64 // Close of the bar that fired
	Reason    string
	Time      time.Time
}

// ConsensusDecision aggregates signals for one instrument and evaluation run.
type ConsensusDecision struct {
	ID              string             `json:"id"`
	Symbol          string             `json:"symbol"`
	Action          Action             `json:"action"`
	Confidence      float64            `json:"confidence"`
	BuyCount        int                `json:"buy_count"`
	SellCount       int                `json:"sell_count"`
	TotalSignals    int                `json:"total_signals"`
	Sources         []string           `json:"sources"`
	Signals         []Signal           `json:"signals"`
	QualityBySource map[string]float64 `json:"quality_by_source,omitempty"`
	DecidedAt       time.Time          `json:"decided_at"`
}

// NewsItem is an externally sourced article.
type NewsItem struct {
	ID          int64
	Symbol      string
	PublishedAt time.Time
	Title       string
	Summary     string
	Source      string
	URL         string
}

// SentimentScore is one model's view of a news item or social post.
type SentimentScore struct {
	ID           int64
	NewsItemID   *int64 // nil when the score belongs to a social post
	SocialPostID string
	Model        string
	Score        float64 // -1 to 1
	Label        string
	ScoredAt     time.Time
}

// SourceHealth is a point-in-time view of one provider's call history.
type SourceHealth struct {
	Source               string
	Successes            int64
	Failures             int64
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	SuccessRate          float64
	Delay                time.Duration
}

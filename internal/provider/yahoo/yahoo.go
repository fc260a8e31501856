package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// validSymbol matches stock symbols like AAPL, MSFT, 600519.SH, 0700.HK, ^GSPC
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9\-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.Errorf(core.ErrNotFound, "symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return core.Errorf(core.ErrNotFound, "invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart adapter
type Yahoo struct {
	client *http.Client
	config provider.Config
}

// New creates a new Yahoo adapter
func New(cfg provider.Config) *Yahoo {
	cfg = cfg.WithDefaults(baseURL)
	return &Yahoo{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

func toYahooInterval(interval core.Interval) string {
	switch interval {
	case core.Interval1m, core.Interval5m, core.Interval15m, core.Interval1h:
		return string(interval)
	case core.Interval1w:
		return "1wk"
	default:
		return "1d"
	}
}

// Fetch fetches historical OHLCV bars for rng.
func (y *Yahoo) Fetch(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange) (core.Series, error) {
	if err := validateSymbol(inst.Symbol); err != nil {
		return core.Series{}, err
	}

	u := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		y.config.BaseURL, url.PathEscape(toYahooSymbol(inst.Symbol)), toYahooInterval(interval),
		rng.Start.Unix(), rng.End.Unix())

	body, err := provider.Get(ctx, y.client, u, nil)
	if err != nil {
		return core.Series{}, fmt.Errorf("yahoo %s: %w", inst.Symbol, err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return core.Series{}, core.Errorf(core.ErrMalformed, "decoding response: %v", err)
	}

	if result.Chart.Error != nil {
		if result.Chart.Error.Code == "Not Found" {
			return core.Series{}, core.Errorf(core.ErrNotFound, "yahoo: %s", result.Chart.Error.Description)
		}
		return core.Series{}, core.Errorf(core.ErrMalformed, "yahoo: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Timestamp) == 0 {
		return core.Series{}, core.Errorf(core.ErrNotFound, "no data for symbol: %s", inst.Symbol)
	}

	r := result.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return core.Series{}, core.Errorf(core.ErrMalformed, "no quote block for symbol: %s", inst.Symbol)
	}
	q := r.Indicators.Quote[0]
	n := len(r.Timestamp)
	if len(q.Open) < n || len(q.High) < n || len(q.Low) < n || len(q.Close) < n || len(q.Volume) < n {
		return core.Series{}, core.Errorf(core.ErrMalformed, "quote arrays shorter than timestamps for %s", inst.Symbol)
	}

	bars := make([]core.Bar, 0, n)
	for i, ts := range r.Timestamp {
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue // Skip missing data
		}
		var vol int64
		if q.Volume[i] != nil {
			vol = *q.Volume[i]
		}
		bars = append(bars, core.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   decimal.NewFromFloat(*q.Open[i]),
			High:   decimal.NewFromFloat(*q.High[i]),
			Low:    decimal.NewFromFloat(*q.Low[i]),
			Close:  decimal.NewFromFloat(*q.Close[i]),
			Volume: vol,
		})
	}
	if len(bars) == 0 {
		return core.Series{}, core.Errorf(core.ErrNotFound, "no complete bars for symbol: %s", inst.Symbol)
	}

	return core.NewSeries(inst, interval, bars), nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// Package alphavantage adapts the Alpha Vantage TIME_SERIES endpoints.
package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
)

const (
	baseURL = "https://www.alphavantage.co/query"

	// compact responses carry the latest 100 points
	compactPoints = 100
)

// AlphaVantage implements provider.Provider.
type AlphaVantage struct {
	client *http.Client
	config provider.Config
	loc    *time.Location
}

// New creates an adapter. Intraday timestamps are interpreted in US/Eastern.
func New(cfg provider.Config) *AlphaVantage {
	cfg = cfg.WithDefaults(baseURL)
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &AlphaVantage{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		loc:    loc,
	}
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

type endpoint struct {
	function string
	interval string // intraday only
	key      string // time-series object key in the payload
	layout   string
}

func endpointFor(iv core.Interval) endpoint {
	switch iv {
	case core.Interval1m, core.Interval5m, core.Interval15m, core.Interval1h:
		avInterval := map[core.Interval]string{
			core.Interval1m:  "1min",
			core.Interval5m:  "5min",
			core.Interval15m: "15min",
			core.Interval1h:  "60min",
		}[iv]
		return endpoint{
			function: "TIME_SERIES_INTRADAY",
			interval: avInterval,
			key:      "Time Series (" + avInterval + ")",
			layout:   time.DateTime,
		}
	case core.Interval1w:
		return endpoint{function: "TIME_SERIES_WEEKLY", key: "Weekly Time Series", layout: time.DateOnly}
	default:
		return endpoint{function: "TIME_SERIES_DAILY", key: "Time Series (Daily)", layout: time.DateOnly}
	}
}

func (a *AlphaVantage) Fetch(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange) (core.Series, error) {
	ep := endpointFor(interval)

	q := url.Values{}
	q.Set("function", ep.function)
	q.Set("symbol", inst.Symbol)
	q.Set("apikey", a.config.APIKey)
	if ep.interval != "" {
		q.Set("interval", ep.interval)
	}
	outputSize := "compact"
	if rng.End.Sub(rng.Start)/interval.Duration() > compactPoints {
		outputSize = "full"
	}
	q.Set("outputsize", outputSize)

	body, err := provider.Get(ctx, a.client, a.config.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return core.Series{}, fmt.Errorf("alphavantage %s: %w", inst.Symbol, err)
	}
	if !gjson.ValidBytes(body) {
		return core.Series{}, core.Errorf(core.ErrMalformed, "alphavantage %s: invalid json", inst.Symbol)
	}

	parsed := gjson.ParseBytes(body)
	// Throttling replies are 200s carrying a Note or Information message.
	if msg := parsed.Get("Note"); msg.Exists() {
		return core.Series{}, core.Errorf(core.ErrRateLimited, "alphavantage: %s", msg.String())
	}
	if msg := parsed.Get("Information"); msg.Exists() {
		return core.Series{}, core.Errorf(core.ErrRateLimited, "alphavantage: %s", msg.String())
	}
	if msg := parsed.Get("Error Message"); msg.Exists() {
		return core.Series{}, core.Errorf(core.ErrNotFound, "alphavantage: %s", msg.String())
	}

	series := parsed.Get(gjson.Escape(ep.key))
	if !series.IsObject() {
		return core.Series{}, core.Errorf(core.ErrMalformed, "alphavantage %s: missing %q", inst.Symbol, ep.key)
	}

	var (
		bars     []core.Bar
		parseErr error
	)
	series.ForEach(func(key, value gjson.Result) bool {
		ts, err := time.ParseInLocation(ep.layout, key.String(), a.loc)
		if err != nil {
			parseErr = fmt.Errorf("timestamp %q: %w", key.String(), err)
			return false
		}
		if ep.interval == "" {
			// daily and weekly keys are calendar dates
			ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		}
		if !rng.Contains(ts.UTC()) {
			return true
		}
		bar, err := parseBar(ts, value)
		if err != nil {
			parseErr = fmt.Errorf("%s: %w", key.String(), err)
			return false
		}
		bars = append(bars, bar)
		return true
	})
	if parseErr != nil {
		return core.Series{}, core.Errorf(core.ErrMalformed, "alphavantage %s: %v", inst.Symbol, parseErr)
	}
	if len(bars) == 0 {
		return core.Series{}, core.Errorf(core.ErrNotFound, "alphavantage %s: no bars in range", inst.Symbol)
	}
	return core.NewSeries(inst, interval, bars), nil
}

func parseBar(ts time.Time, v gjson.Result) (core.Bar, error) {
	fields := []string{"1\\. open", "2\\. high", "3\\. low", "4\\. close"}
	var prices [4]decimal.Decimal
	for i, f := range fields {
		raw := v.Get(f)
		if !raw.Exists() {
			return core.Bar{}, fmt.Errorf("missing field %s", f)
		}
		d, err := decimal.NewFromString(raw.String())
		if err != nil {
			return core.Bar{}, err
		}
		prices[i] = d
	}
	return core.Bar{
		Time:   ts.UTC(),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: v.Get("5\\. volume").Int(),
	}, nil
}

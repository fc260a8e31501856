package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
)

const (
	baseURL = "https://api.binance.com"

	// klines page size cap
	pageLimit = 1000

	codeTooManyRequests = -1003
	codeInvalidSymbol   = -1121
)

// Common quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

// Binance implements the klines adapter for the Binance spot exchange
type Binance struct {
	client *http.Client
	config provider.Config
}

// New creates a new Binance adapter
func New(cfg provider.Config) *Binance {
	cfg = cfg.WithDefaults(baseURL)
	return &Binance{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

func (b *Binance) Name() string {
	return "binance"
}

// normalizeSymbol converts "BTC", "btc-usdt", "BTC/USDT" to "BTCUSDT".
func normalizeSymbol(input string) string {
	s := strings.ToUpper(input)
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + "USDT"
}

func toInterval(interval core.Interval) string {
	switch interval {
	case core.Interval1m, core.Interval5m, core.Interval15m, core.Interval1h, core.Interval1d, core.Interval1w:
		return string(interval)
	default:
		return "1d"
	}
}

// Fetch pages through klines until rng is covered.
func (b *Binance) Fetch(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange) (core.Series, error) {
	symbol := normalizeSymbol(inst.Symbol)
	var bars []core.Bar

	start := rng.Start
	for start.Before(rng.End) {
		page, err := b.fetchPage(ctx, symbol, interval, start, rng.End)
		if err != nil {
			return core.Series{}, fmt.Errorf("binance %s: %w", symbol, err)
		}
		bars = append(bars, page...)
		if len(page) < pageLimit {
			break
		}
		start = page[len(page)-1].Time.Add(time.Millisecond)
	}

	if len(bars) == 0 {
		return core.Series{}, core.Errorf(core.ErrNotFound, "no klines for %s", symbol)
	}
	return core.NewSeries(inst.WithAssetClass(core.AssetCrypto), interval, bars), nil
}

func (b *Binance) fetchPage(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.Bar, error) {
	u := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
		b.config.BaseURL, symbol, toInterval(interval), start.UnixMilli(), end.UnixMilli()-1, pageLimit)

	body, err := provider.Get(ctx, b.client, u, nil)
	if err != nil {
		return nil, refine(err, body)
	}

	var klines [][]json.RawMessage
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, core.Errorf(core.ErrMalformed, "decoding klines: %v", err)
	}

	bars := make([]core.Bar, 0, len(klines))
	for i, k := range klines {
		bar, err := parseKline(k)
		if err != nil {
			return nil, core.Errorf(core.ErrMalformed, "kline %d: %v", i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// refine maps exchange error codes carried in a non-2xx body.
func refine(err error, body []byte) error {
	var apiErr apiError
	if len(body) == 0 || json.Unmarshal(body, &apiErr) != nil {
		return err
	}
	switch apiErr.Code {
	case codeInvalidSymbol:
		return core.Errorf(core.ErrNotFound, "%s", apiErr.Msg)
	case codeTooManyRequests:
		return core.Errorf(core.ErrRateLimited, "%s", apiErr.Msg)
	}
	return err
}

func parseKline(k []json.RawMessage) (core.Bar, error) {
	if len(k) < 6 {
		return core.Bar{}, fmt.Errorf("expected at least 6 fields, got %d", len(k))
	}
	var openTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return core.Bar{}, fmt.Errorf("open time: %w", err)
	}
	var fields [5]decimal.Decimal
	for i := range fields {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return core.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return core.Bar{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		fields[i] = d
	}
	return core.Bar{
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4].IntPart(),
	}, nil
}

// Binance API response types
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

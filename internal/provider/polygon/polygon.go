package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
)

const (
	baseURL = "https://api.polygon.io"

	// follow at most this many next_url pages per call
	maxPages = 10
)

// Polygon implements the aggregates (bars) v2 adapter.
type Polygon struct {
	client *http.Client
	config provider.Config
}

// New creates a new Polygon adapter
func New(cfg provider.Config) *Polygon {
	cfg = cfg.WithDefaults(baseURL)
	return &Polygon{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

func (p *Polygon) Name() string { return "polygon" }

func timespan(iv core.Interval) (int, string) {
	switch iv {
	case core.Interval1m:
		return 1, "minute"
	case core.Interval5m:
		return 5, "minute"
	case core.Interval15m:
		return 15, "minute"
	case core.Interval1h:
		return 1, "hour"
	case core.Interval1w:
		return 1, "week"
	default:
		return 1, "day"
	}
}

func (p *Polygon) Fetch(ctx context.Context, inst core.Instrument, interval core.Interval, rng core.TimeRange) (core.Series, error) {
	mult, span := timespan(interval)
	next := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%d/%d?adjusted=true&sort=asc&limit=50000",
		p.config.BaseURL, url.PathEscape(inst.Root()), mult, span, rng.Start.UnixMilli(), rng.End.UnixMilli()-1)

	var bars []core.Bar
	for page := 0; next != "" && page < maxPages; page++ {
		resp, err := p.fetchPage(ctx, next)
		if err != nil {
			return core.Series{}, fmt.Errorf("polygon %s: %w", inst.Symbol, err)
		}
		for _, agg := range resp.Results {
			bar := core.Bar{
				Time:   time.UnixMilli(agg.T).UTC(),
				Open:   decimal.NewFromFloat(agg.O),
				High:   decimal.NewFromFloat(agg.H),
				Low:    decimal.NewFromFloat(agg.L),
				Close:  decimal.NewFromFloat(agg.C),
				Volume: int64(agg.V),
			}
			if rng.Contains(bar.Time) {
				bars = append(bars, bar)
			}
		}
		next = resp.NextURL
	}

	if len(bars) == 0 {
		return core.Series{}, core.Errorf(core.ErrNotFound, "polygon %s: no aggregates in range", inst.Symbol)
	}
	return core.NewSeries(inst, interval, bars), nil
}

func (p *Polygon) fetchPage(ctx context.Context, pageURL string) (*aggsResponse, error) {
	header := http.Header{"Authorization": {"Bearer " + p.config.APIKey}}
	body, err := provider.Get(ctx, p.client, pageURL, header)
	if err != nil {
		return nil, err
	}

	var resp aggsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, core.Errorf(core.ErrMalformed, "decoding response: %v", err)
	}
	switch resp.Status {
	case "OK", "DELAYED":
	case "ERROR":
		return nil, core.Errorf(core.ErrMalformed, "%s", resp.Error)
	case "NOT_AUTHORIZED":
		return nil, core.Errorf(core.ErrMalformed, "not authorized: %s", resp.Message)
	default:
		return nil, core.Errorf(core.ErrMalformed, "unexpected status %q", resp.Status)
	}
	return &resp, nil
}

// Polygon API response types
type aggsResponse struct {
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Results      []agg  `json:"results"`
	NextURL      string `json:"next_url"`
	Error        string `json:"error"`
	Message      string `json:"message"`
}

type agg struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

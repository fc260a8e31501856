package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
	"github.com/newthinker/meridian/internal/provider/providertest"
)

const dailyPayload = `{
  "Meta Data": {"2. Symbol": "IBM"},
  "Time Series (Daily)": {
    "2024-01-04": {"1. open": "161.00", "2. high": "161.80", "3. low": "160.30", "4. close": "161.10", "5. volume": "4000000"},
    "2024-01-03": {"1. open": "160.00", "2. high": "161.40", "3. low": "159.80", "4. close": "160.90", "5. volume": "3500000"},
    "2024-01-02": {"1. open": "162.00", "2. high": "162.50", "3. low": "159.90", "4. close": "160.10", "5. volume": "3000000"},
    "2023-12-29": {"1. open": "163.00", "2. high": "163.60", "3. low": "162.00", "4. close": "163.50", "5. volume": "2000000"}
  }
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "demo", q.Get("apikey"))
		switch q.Get("symbol") {
		case "THROTTLED":
			fmt.Fprint(w, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`)
		case "NOPE":
			fmt.Fprint(w, `{"Error Message": "Invalid API call. Please retry or visit the documentation."}`)
		case "BROKEN":
			fmt.Fprint(w, `{"Meta Data": {}}`)
		default:
			fmt.Fprint(w, dailyPayload)
		}
	}))
}

func TestAlphaVantage_Conformance(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	a := New(provider.Config{BaseURL: srv.URL, APIKey: "demo"})
	providertest.Run(t, a, providertest.Case{
		Interval: core.Interval1d,
		Range:    core.NewTimeRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		Known:    []core.Instrument{core.ParseInstrument("IBM"), core.ParseInstrument("MSFT")},
		Unknown:  core.ParseInstrument("NOPE"),
	})
}

func TestAlphaVantage_FetchFiltersRange(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	a := New(provider.Config{BaseURL: srv.URL, APIKey: "demo"})
	rng := core.NewTimeRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	s, err := a.Fetch(context.Background(), core.ParseInstrument("IBM"), core.Interval1d, rng)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Bars[0].Time)
	assert.Equal(t, "160.1", s.Bars[0].Close.String())
	assert.Equal(t, int64(4000000), s.Bars[2].Volume)
}

func TestAlphaVantage_Errors(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	a := New(provider.Config{BaseURL: srv.URL, APIKey: "demo"})
	rng := core.NewTimeRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		symbol string
		want   error
	}{
		{"THROTTLED", core.ErrRateLimited},
		{"NOPE", core.ErrNotFound},
		{"BROKEN", core.ErrMalformed},
	}
	for _, tc := range tests {
		_, err := a.Fetch(context.Background(), core.ParseInstrument(tc.symbol), core.Interval1d, rng)
		assert.True(t, errors.Is(err, tc.want), "%s: got %v", tc.symbol, err)
	}
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "TIME_SERIES_DAILY", endpointFor(core.Interval1d).function)
	assert.Equal(t, "TIME_SERIES_WEEKLY", endpointFor(core.Interval1w).function)
	ep := endpointFor(core.Interval1h)
	assert.Equal(t, "TIME_SERIES_INTRADAY", ep.function)
	assert.Equal(t, "60min", ep.interval)
	assert.Equal(t, "Time Series (60min)", ep.key)
}

package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/provider"
	"github.com/newthinker/meridian/internal/provider/providertest"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case strings.Contains(r.URL.Path, "/ticker/NOPE/"):
			fmt.Fprint(w, `{"status":"OK","resultsCount":0,"results":[]}`)
		case strings.Contains(r.URL.Path, "/ticker/BAD/"):
			fmt.Fprint(w, `{"status":"ERROR","error":"invalid timespan"}`)
		case r.URL.Path == "/page2":
			fmt.Fprintf(w, `{"status":"OK","resultsCount":1,"results":[{"t":%d,"o":3,"h":4,"l":2,"c":3.5,"v":300}]}`,
				day0.AddDate(0, 0, 2).UnixMilli())
		default:
			fmt.Fprintf(w, `{"status":"OK","resultsCount":2,"results":[{"t":%d,"o":1,"h":2,"l":0.5,"c":1.5,"v":100},{"t":%d,"o":2,"h":3,"l":1.5,"c":2.5,"v":200}],"next_url":"%s/page2"}`,
				day0.UnixMilli(), day0.AddDate(0, 0, 1).UnixMilli(), srv.URL)
		}
	}))
	return srv
}

func TestPolygon_Conformance(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	providertest.Run(t, New(provider.Config{BaseURL: srv.URL, APIKey: "key"}), providertest.Case{
		Interval: core.Interval1d,
		Range:    core.NewTimeRange(day0, day0.AddDate(0, 0, 3)),
		Known:    []core.Instrument{core.ParseInstrument("AAPL"), core.ParseInstrument("MSFT")},
		Unknown:  core.ParseInstrument("NOPE"),
	})
}

func TestPolygon_FetchFollowsNextURL(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	p := New(provider.Config{BaseURL: srv.URL, APIKey: "key"})
	s, err := p.Fetch(context.Background(), core.ParseInstrument("AAPL"), core.Interval1d, core.NewTimeRange(day0, day0.AddDate(0, 0, 3)))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 bars across two pages, got %d", s.Len())
	}
	if s.Bars[2].Volume != 300 {
		t.Errorf("expected volume 300, got %d", s.Bars[2].Volume)
	}
}

func TestPolygon_Errors(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	rng := core.NewTimeRange(day0, day0.AddDate(0, 0, 3))
	_, err := New(provider.Config{BaseURL: srv.URL, APIKey: "key"}).Fetch(context.Background(), core.ParseInstrument("BAD"), core.Interval1d, rng)
	if !errors.Is(err, core.ErrMalformed) {
		t.Errorf("expected MALFORMED, got %v", err)
	}

	_, err = New(provider.Config{BaseURL: srv.URL, APIKey: "wrong"}).Fetch(context.Background(), core.ParseInstrument("AAPL"), core.Interval1d, rng)
	if !errors.Is(err, core.ErrMalformed) {
		t.Errorf("expected MALFORMED for 401, got %v", err)
	}
}

func TestTimespan(t *testing.T) {
	tests := []struct {
		iv   core.Interval
		mult int
		span string
	}{
		{core.Interval1m, 1, "minute"},
		{core.Interval15m, 15, "minute"},
		{core.Interval1h, 1, "hour"},
		{core.Interval1d, 1, "day"},
		{core.Interval1w, 1, "week"},
	}
	for _, tc := range tests {
		mult, span := timespan(tc.iv)
		if mult != tc.mult || span != tc.span {
			t.Errorf("timespan(%s) = %d %s, want %d %s", tc.iv, mult, span, tc.mult, tc.span)
		}
	}
}

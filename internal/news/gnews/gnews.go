// Package gnews adapts the gnews.io v4 search endpoint.
package gnews

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/news"
	"github.com/newthinker/meridian/internal/provider"
)

const baseURL = "https://gnews.io"

// GNews fetches articles matching a ticker.
type GNews struct {
	client *http.Client
	config provider.Config
}

// New creates a gnews.io adapter.
func New(cfg provider.Config) *GNews {
	cfg = cfg.WithDefaults(baseURL)
	return &GNews{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

func (g *GNews) Name() string { return "gnews" }

func (g *GNews) Fetch(ctx context.Context, symbol string, since time.Time, limit int) ([]core.NewsItem, error) {
	q := url.Values{}
	q.Set("q", news.Query(symbol))
	q.Set("from", since.UTC().Format(time.RFC3339))
	q.Set("lang", "en")
	q.Set("sortby", "publishedAt")
	q.Set("max", strconv.Itoa(limit))
	q.Set("apikey", g.config.APIKey)
	endpoint := g.config.BaseURL + "/api/v4/search?" + q.Encode()

	body, err := provider.Get(ctx, g.client, endpoint, nil)
	if err != nil {
		if msg := errorMessage(body); msg != "" {
			return nil, fmt.Errorf("gnews %s: %w (%s)", symbol, err, msg)
		}
		return nil, fmt.Errorf("gnews %s: %w", symbol, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, core.Errorf(core.ErrMalformed, "gnews %s: invalid JSON", symbol)
	}

	doc := gjson.ParseBytes(body)
	if msg := errorMessage(body); msg != "" {
		return nil, core.Errorf(core.ErrMalformed, "gnews %s: %s", symbol, msg)
	}
	articles := doc.Get("articles")
	if !articles.IsArray() {
		return nil, core.Errorf(core.ErrMalformed, "gnews %s: missing articles", symbol)
	}

	var items []core.NewsItem
	articles.ForEach(func(_, a gjson.Result) bool {
		u := a.Get("url").String()
		if u == "" {
			return true
		}
		published, err := time.Parse(time.RFC3339, a.Get("publishedAt").String())
		if err != nil {
			return true
		}
		src := "gnews"
		if name := a.Get("source.name").String(); name != "" {
			src += ":" + name
		}
		items = append(items, core.NewsItem{
			Symbol:      symbol,
			PublishedAt: published.UTC(),
			Title:       a.Get("title").String(),
			Summary:     a.Get("description").String(),
			Source:      src,
			URL:         u,
		})
		return true
	})
	return items, nil
}

// errorMessage extracts the "errors" field, which gnews sends either as an
// array of strings or as an object keyed by parameter.
func errorMessage(body []byte) string {
	e := gjson.GetBytes(body, "errors")
	if !e.Exists() {
		return ""
	}
	var msgs []string
	e.ForEach(func(_, v gjson.Result) bool {
		msgs = append(msgs, v.String())
		return true
	})
	return strings.Join(msgs, "; ")
}

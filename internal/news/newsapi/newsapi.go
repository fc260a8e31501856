// Package newsapi adapts the newsapi.org /v2/everything endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/meridian/internal/core"
	"github.com/newthinker/meridian/internal/news"
	"github.com/newthinker/meridian/internal/provider"
)

const baseURL = "https://newsapi.org"

// NewsAPI fetches articles matching a ticker.
type NewsAPI struct {
	client *http.Client
	config provider.Config
}

// New creates a newsapi.org adapter.
func New(cfg provider.Config) *NewsAPI {
	cfg = cfg.WithDefaults(baseURL)
	return &NewsAPI{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

func (n *NewsAPI) Name() string { return "newsapi" }

type response struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

func (n *NewsAPI) Fetch(ctx context.Context, symbol string, since time.Time, limit int) ([]core.NewsItem, error) {
	q := url.Values{}
	q.Set("q", news.Query(symbol))
	q.Set("from", since.UTC().Format(time.RFC3339))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	q.Set("pageSize", strconv.Itoa(limit))
	endpoint := n.config.BaseURL + "/v2/everything?" + q.Encode()

	body, err := provider.Get(ctx, n.client, endpoint, http.Header{"X-Api-Key": {n.config.APIKey}})

	var resp response
	if jsonErr := json.Unmarshal(body, &resp); jsonErr == nil && resp.Status == "error" {
		return nil, fmt.Errorf("newsapi %s: %w", symbol, classify(resp.Code, resp.Message))
	}
	if err != nil {
		return nil, fmt.Errorf("newsapi %s: %w", symbol, err)
	}
	if resp.Status != "ok" {
		return nil, core.Errorf(core.ErrMalformed, "newsapi %s: unexpected status %q", symbol, resp.Status)
	}

	items := make([]core.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.URL == "" || strings.EqualFold(a.Title, "[Removed]") {
			continue
		}
		items = append(items, core.NewsItem{
			Symbol:      symbol,
			PublishedAt: a.PublishedAt.UTC(),
			Title:       a.Title,
			Summary:     a.Description,
			Source:      sourceName(a.Source.Name),
			URL:         a.URL,
		})
	}
	return items, nil
}

func sourceName(publisher string) string {
	if publisher == "" {
		return "newsapi"
	}
	return "newsapi:" + publisher
}

// classify maps newsapi error codes onto the taxonomy.
func classify(code, message string) error {
	switch code {
	case "rateLimited":
		return core.Errorf(core.ErrRateLimited, "%s", message)
	case "unexpectedError":
		return core.Errorf(core.ErrTransient, "%s", message)
	default:
		return core.Errorf(core.ErrMalformed, "%s: %s", code, message)
	}
}

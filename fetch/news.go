package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/candleview/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// CoinStatsNewsURL is the default coinstats news endpoint.
	CoinStatsNewsURL = "https://api.coinstats.app/public/v1/news"
	// PolygonNewsURL is the default polygon news endpoint.
	PolygonNewsURL = "https://api.polygon.io/v2/reference/news"
	// defaultNewsLimit is the default number of news items requested.
	defaultNewsLimit = 10
	// unknownSource is the source used when a news item has no publisher.
	unknownSource = "Unknown"
)

// NewsConfig represents the configuration for the news client.
type NewsConfig struct {
	// CoinStatsURL is the coinstats news endpoint.
	CoinStatsURL string
	// PolygonURL is the polygon news endpoint.
	PolygonURL string
	// PolygonAPIKey is the optional polygon api key. Polygon is preferred when set.
	PolygonAPIKey string
	// Limit is the number of news items requested.
	Limit int
	// Timeout bounds the wait of a single request.
	Timeout time.Duration
	// Retry is the retry policy for source unavailable failures.
	Retry RetryConfig
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *NewsConfig) Validate() error {
	var errs error

	if cfg.CoinStatsURL == "" {
		errs = errors.Join(errs, fmt.Errorf("coinstats url cannot be an empty string"))
	}
	if cfg.PolygonAPIKey != "" && cfg.PolygonURL == "" {
		errs = errors.Join(errs, fmt.Errorf("polygon url cannot be an empty string"))
	}
	if cfg.Limit <= 0 {
		errs = errors.Join(errs, fmt.Errorf("news limit must be positive"))
	}
	if cfg.Timeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("timeout must be positive"))
	}
	err := cfg.Retry.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// NewsClient fetches and normalizes news from coinstats or polygon.
type NewsClient struct {
	cfg   *NewsConfig
	httpc *http.Client
}

// NewNewsClient instantiates a new news client.
func NewNewsClient(cfg *NewsConfig) (*NewsClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating news config: %w", err)
	}

	return &NewsClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// newsURL returns the news url of the active provider.
func (c *NewsClient) newsURL() string {
	params := url.Values{}
	params.Add("limit", strconv.Itoa(c.cfg.Limit))

	if c.cfg.PolygonAPIKey != "" {
		params.Add("apiKey", c.cfg.PolygonAPIKey)
		return c.cfg.PolygonURL + "?" + params.Encode()
	}

	params.Add("skip", "0")
	return c.cfg.CoinStatsURL + "?" + params.Encode()
}

// FetchNews fetches the latest news items.
func (c *NewsClient) FetchNews(ctx context.Context) ([]shared.NewsItem, error) {
	formedURL := c.newsURL()

	var news []shared.NewsItem
	err := retry(ctx, c.cfg.Retry, c.cfg.Logger, func() error {
		body, err := get(ctx, c.httpc, formedURL, nil)
		if err != nil {
			return err
		}

		news, err = ParseNews(body)
		if err != nil {
			c.cfg.Logger.Debug().Msgf("unexpected news payload: %s", dump(body))
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching news: %w", err)
	}

	return news, nil
}

// ParseNews normalizes a coinstats ({news:[...]}) or polygon ({results:[...]}) news payload.
func ParseNews(data []byte) ([]shared.NewsItem, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: news payload is not valid json", shared.ErrMalformedResponse)
	}

	payload := gjson.ParseBytes(data)

	if results := payload.Get("results"); results.Exists() {
		if !results.IsArray() {
			return nil, fmt.Errorf("%w: news results is not an array", shared.ErrMalformedResponse)
		}

		items := results.Array()
		news := make([]shared.NewsItem, 0, len(items))
		for _, item := range items {
			source := item.Get("publisher.name").String()
			if source == "" {
				source = unknownSource
			}

			news = append(news, shared.NewsItem{
				ID:          item.Get("id").String(),
				Title:       item.Get("title").String(),
				Source:      source,
				Link:        item.Get("article_url").String(),
				ImageURL:    item.Get("image_url").String(),
				Description: item.Get("description").String(),
				PublishedAt: item.Get("published_utc").String(),
			})
		}

		return news, nil
	}

	list := payload.Get("news")
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected a news or results array", shared.ErrMalformedResponse)
	}

	items := list.Array()
	news := make([]shared.NewsItem, 0, len(items))
	for _, item := range items {
		source := item.Get("source").String()
		if source == "" {
			source = unknownSource
		}

		news = append(news, shared.NewsItem{
			ID:          item.Get("id").String(),
			Title:       item.Get("title").String(),
			Source:      source,
			Link:        item.Get("link").String(),
			ImageURL:    item.Get("imgURL").String(),
			Description: item.Get("description").String(),
			PublishedAt: publishedAt(item),
		})
	}

	return news, nil
}

// publishedAt resolves the publication time of a coinstats item, which is either an
// explicit string or a feed date in milliseconds.
func publishedAt(item gjson.Result) string {
	for _, key := range []string{"publishedAt", "feedDate", "date"} {
		v := item.Get(key)
		switch v.Type {
		case gjson.String:
			if strings.TrimSpace(v.Str) != "" {
				return v.Str
			}
		case gjson.Number:
			return time.UnixMilli(v.Int()).UTC().Format(time.RFC3339)
		}
	}

	return ""
}

package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/unibot/backend/pkg/circuitbreaker"
	"github.com/unibot/backend/pkg/logger"
)

const (
	NoResults   = "No relevant search results."
	ErrorPrefix = "Search error: "

	DefaultGoogleURL = "https://www.googleapis.com/customsearch/v1"
	DefaultSerpURL   = "https://serpapi.com/search"
)

type Config struct {
	GoogleAPIKey string
	GoogleCX     string
	// SerpAPIKey takes precedence over Google when set.
	SerpAPIKey string
	MaxResults int
	Timeout    time.Duration
	// Delay is waited before every request to stay under the provider quota.
	Delay time.Duration

	GoogleURL string
	SerpURL   string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

type result struct {
	Title   string
	Link    string
	Snippet string
}

func NewClient(cfg Config) *Client {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.GoogleURL == "" {
		cfg.GoogleURL = DefaultGoogleURL
	}
	if cfg.SerpURL == "" {
		cfg.SerpURL = DefaultSerpURL
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cb: circuitbreaker.NewCircuitBreaker("web_search", circuitbreaker.Config{
			MaxRequests:      1,
			Timeout:          time.Minute,
			FailureThreshold: 5,
			SuccessThreshold: 1,
			Logger:           logger.GetLogger(),
		}),
	}
}

// Search never fails: it returns formatted results, the NoResults sentinel,
// or a single ErrorPrefix sentinel.
func (c *Client) Search(ctx context.Context, query string) []string {
	logger.Info("Performing web search", zap.String("query", query))

	if c.cfg.Delay > 0 {
		timer := time.NewTimer(c.cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return []string{ErrorPrefix + ctx.Err().Error()}
		case <-timer.C:
		}
	}

	var results []result
	err := c.cb.Execute(func() error {
		var err error
		if c.cfg.SerpAPIKey != "" {
			results, err = c.searchWithSerpAPI(ctx, query)
		} else {
			results, err = c.searchWithGoogle(ctx, query)
		}
		return err
	})
	if err != nil {
		logger.Warn("Web search failed", zap.Error(err))
		return []string{ErrorPrefix + err.Error()}
	}

	logger.Info("Web search completed", zap.Int("results", len(results)))

	if len(results) == 0 {
		return []string{NoResults}
	}

	formatted := make([]string, len(results))
	for i, r := range results {
		formatted[i] = fmt.Sprintf("**%s**\n%s\n🔗 [Link](%s)", r.Title, r.Snippet, r.Link)
	}
	return formatted
}

func (c *Client) searchWithGoogle(ctx context.Context, query string) ([]result, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("key", c.cfg.GoogleAPIKey)
	params.Add("cx", c.cfg.GoogleCX)
	params.Add("num", strconv.Itoa(c.cfg.MaxResults))

	body, err := c.get(ctx, c.cfg.GoogleURL, params)
	if err != nil {
		return nil, err
	}
	return parseResults(body, "items"), nil
}

func (c *Client) searchWithSerpAPI(ctx context.Context, query string) ([]result, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("api_key", c.cfg.SerpAPIKey)
	params.Add("num", strconv.Itoa(c.cfg.MaxResults))

	body, err := c.get(ctx, c.cfg.SerpURL, params)
	if err != nil {
		return nil, err
	}
	return parseResults(body, "organic_results"), nil
}

func (c *Client) get(ctx context.Context, baseURL string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse response: invalid JSON")
	}
	return body, nil
}

func parseResults(body []byte, path string) []result {
	var results []result
	gjson.GetBytes(body, path).ForEach(func(_, item gjson.Result) bool {
		results = append(results, result{
			Title:   stringOr(item.Get("title"), "No Title"),
			Link:    stringOr(item.Get("link"), "#"),
			Snippet: stringOr(item.Get("snippet"), "No snippet available."),
		})
		return true
	})
	return results
}

func stringOr(r gjson.Result, fallback string) string {
	if !r.Exists() {
		return fallback
	}
	return r.String()
}

// IsSentinel reports whether s is a placeholder rather than a real result.
func IsSentinel(s string) bool {
	return s == NoResults || strings.HasPrefix(s, ErrorPrefix)
}

// Snippets drops sentinels, leaving only results fit for prompt context.
func Snippets(results []string) []string {
	var out []string
	for _, r := range results {
		if !IsSentinel(r) {
			out = append(out, r)
		}
	}
	return out
}

// Package catalog implements the content catalog gateway client. The
// engine core consumes only the Gateway interface; everything behind it
// (HTTP transport, rate limiting, circuit breaking, response caching) is
// outside the core contract.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
	"github.com/priyamehta/screenscout/internal/ratelimit"
	"github.com/priyamehta/screenscout/internal/resilience"
)

// ErrUnavailable wraps any transport failure or non-2xx status from the
// catalog service.
var ErrUnavailable = errors.New("catalog unavailable")

// Gateway is the narrow contract the search engine consumes.
type Gateway interface {
	SearchByTitle(ctx context.Context, query string, page int) (*models.CatalogPage, error)
	SearchByPerson(ctx context.Context, name string, page int) (*models.CatalogPage, error)
	DiscoverByGenre(ctx context.Context, genreID, page int) (*models.CatalogPage, error)
	Trending(ctx context.Context, window string) (*models.CatalogPage, error)
	Popular(ctx context.Context, page int) (*models.CatalogPage, error)
}

// Client talks to a TMDB-shaped catalog API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *ratelimit.Window
	breaker *gobreaker.CircuitBreaker
	cache   *ResponseCache
	logger  *zap.Logger
}

func NewClient(cfg config.CatalogConfig, cache *ResponseCache, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: ratelimit.NewWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		breaker: resilience.NewCircuitBreaker("catalog", cfg.CircuitBreaker, logger),
		cache:   cache,
		logger:  logger,
	}
}

func (c *Client) SearchByTitle(ctx context.Context, query string, page int) (*models.CatalogPage, error) {
	params := url.Values{"query": {query}}
	return c.fetchPage(ctx, "search_title", "/search/movie", params, page, c.cache.titleTTL())
}

// SearchByPerson flattens the known-for credits of matched people into
// one candidate page, since the engine ranks titles, not people.
func (c *Client) SearchByPerson(ctx context.Context, name string, page int) (*models.CatalogPage, error) {
	params := url.Values{"query": {name}}
	key := cacheKey("search_person", params, page)

	if cached := c.cache.Get(ctx, key); cached != nil {
		return cached, nil
	}

	var wire personPage
	if err := c.do(ctx, "search_person", "/search/person", params, page, &wire); err != nil {
		return nil, err
	}

	result := &models.CatalogPage{
		Page:         wire.Page,
		TotalPages:   wire.TotalPages,
		TotalResults: wire.TotalResults,
	}
	seen := make(map[int64]bool)
	for _, person := range wire.Results {
		for _, item := range person.KnownFor {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			result.Items = append(result.Items, item.toCandidate())
		}
	}

	c.cache.Set(ctx, key, result, c.cache.personTTL())
	return result, nil
}

func (c *Client) DiscoverByGenre(ctx context.Context, genreID, page int) (*models.CatalogPage, error) {
	params := url.Values{
		"with_genres": {strconv.Itoa(genreID)},
		"sort_by":     {"popularity.desc"},
	}
	return c.fetchPage(ctx, "discover_genre", "/discover/movie", params, page, c.cache.discoverTTL())
}

func (c *Client) Trending(ctx context.Context, window string) (*models.CatalogPage, error) {
	if window != "day" && window != "week" {
		window = "week"
	}
	return c.fetchPage(ctx, "trending", "/trending/movie/"+window, url.Values{}, 1, c.cache.trendingTTL())
}

func (c *Client) Popular(ctx context.Context, page int) (*models.CatalogPage, error) {
	return c.fetchPage(ctx, "popular", "/movie/popular", url.Values{}, page, c.cache.popularTTL())
}

// HealthCheck issues a cheap configuration probe against the catalog.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := c.newRequest(ctx, "/configuration", url.Values{}, 0)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) fetchPage(ctx context.Context, op, path string, params url.Values, page int, ttl time.Duration) (*models.CatalogPage, error) {
	key := cacheKey(op, params, page)
	if cached := c.cache.Get(ctx, key); cached != nil {
		return cached, nil
	}

	var wire moviePage
	if err := c.do(ctx, op, path, params, page, &wire); err != nil {
		return nil, err
	}

	result := wire.toPage()
	c.cache.Set(ctx, key, result, ttl)
	return result, nil
}

func (c *Client) do(ctx context.Context, op, path string, params url.Values, page int, out any) error {
	ctx, span := observability.StartSpan(ctx, "catalog."+op,
		attribute.String("path", path),
		attribute.Int("page", page),
	)
	defer span.End()

	if err := c.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			observability.RateLimiterDenials.Inc()
		}
		return err
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(ctx, path, params, page)
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.CatalogRequestDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decoding catalog response: %w", err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, path string, params url.Values, page int) ([]byte, error) {
	req, err := c.newRequest(ctx, path, params, page)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, path string, params url.Values, page int) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("building catalog url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// moviePage / movieItem mirror the catalog's wire format.
type moviePage struct {
	Page         int         `json:"page"`
	Results      []movieItem `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int64       `json:"total_results"`
}

type movieItem struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
	GenreIDs    []int   `json:"genre_ids"`
	Popularity  float64 `json:"popularity"`
}

func (m movieItem) toCandidate() models.Candidate {
	return models.Candidate{
		CatalogID:       m.ID,
		Title:           m.Title,
		Synopsis:        m.Overview,
		ReleaseDate:     m.ReleaseDate,
		RatingAverage:   m.VoteAverage,
		RatingCount:     m.VoteCount,
		GenreTags:       m.GenreIDs,
		PopularityScore: m.Popularity,
	}
}

func (p moviePage) toPage() *models.CatalogPage {
	page := &models.CatalogPage{
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
	}
	for _, item := range p.Results {
		page.Items = append(page.Items, item.toCandidate())
	}
	return page
}

type personPage struct {
	Page         int          `json:"page"`
	Results      []personItem `json:"results"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int64        `json:"total_results"`
}

type personItem struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	KnownFor []movieItem `json:"known_for"`
}

package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.CatalogConfig{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		RequestTimeout: 2 * time.Second,
		RateLimit:      config.RateLimitConfig{Requests: 100, Window: time.Minute},
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:      5,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 3,
		},
	}
	return NewClient(cfg, nil, zap.NewNop()), srv
}

const moviePageJSON = `{
	"page": 1,
	"results": [
		{"id": 4922, "title": "The Curious Case of Benjamin Button",
		 "overview": "A man ages in reverse.", "release_date": "2008-12-25",
		 "vote_average": 7.6, "vote_count": 12000,
		 "genre_ids": [18, 14, 10749], "popularity": 45.2},
		{"id": 550, "title": "Fight Club",
		 "overview": "An insomniac office worker.", "release_date": "1999-10-15",
		 "vote_average": 8.4, "vote_count": 26000,
		 "genre_ids": [18], "popularity": 61.4}
	],
	"total_pages": 1,
	"total_results": 2
}`

func TestSearchByTitle_DecodesPage(t *testing.T) {
	var gotPath, gotQuery string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(moviePageJSON))
	})

	page, err := client.SearchByTitle(context.Background(), "benjamin button", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/search/movie" {
		t.Errorf("expected /search/movie, got %s", gotPath)
	}
	if gotQuery != "benjamin button" {
		t.Errorf("expected query param, got %q", gotQuery)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}

	first := page.Items[0]
	if first.CatalogID != 4922 {
		t.Errorf("expected catalog id 4922, got %d", first.CatalogID)
	}
	if first.Title != "The Curious Case of Benjamin Button" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.ReleaseYear() != 2008 {
		t.Errorf("expected release year 2008, got %d", first.ReleaseYear())
	}
	if page.TotalResults != 2 {
		t.Errorf("expected total 2, got %d", page.TotalResults)
	}
}

func TestSearchByPerson_FlattensKnownFor(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/person" {
			t.Errorf("expected /search/person, got %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"page": 1,
			"results": [
				{"id": 287, "name": "Brad Pitt", "known_for": [
					{"id": 550, "title": "Fight Club", "release_date": "1999-10-15"},
					{"id": 4922, "title": "The Curious Case of Benjamin Button", "release_date": "2008-12-25"}
				]},
				{"id": 288, "name": "Brad Pittman", "known_for": [
					{"id": 550, "title": "Fight Club", "release_date": "1999-10-15"}
				]}
			],
			"total_pages": 1, "total_results": 2
		}`))
	})

	page, err := client.SearchByPerson(context.Background(), "brad pitt", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Duplicate known-for credit (Fight Club) collapses to one candidate.
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 deduplicated items, got %d", len(page.Items))
	}
}

func TestDiscoverByGenre_SendsGenreParam(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("with_genres"); got != "27" {
			t.Errorf("expected with_genres=27, got %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "3" {
			t.Errorf("expected page=3, got %q", got)
		}
		w.Write([]byte(moviePageJSON))
	})

	if _, err := client.DiscoverByGenre(context.Background(), 27, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTrending_NormalizesWindow(t *testing.T) {
	var gotPath string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(moviePageJSON))
	})

	if _, err := client.Trending(context.Background(), "fortnight"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/trending/movie/week" {
		t.Errorf("invalid window should normalize to week, got %s", gotPath)
	}
}

func TestClient_Non200IsUnavailable(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := client.SearchByTitle(context.Background(), "anything", 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_NetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately dead

	cfg := config.CatalogConfig{
		BaseURL:        srv.URL,
		RequestTimeout: time.Second,
		RateLimit:      config.RateLimitConfig{Requests: 10, Window: time.Minute},
		CircuitBreaker: config.CircuitBreakerConfig{MaxRequests: 5, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 3},
	}
	client := NewClient(cfg, nil, zap.NewNop())

	_, err := client.Popular(context.Background(), 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int64
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		client.Popular(ctx, 1)
	}

	// Threshold is 3; later calls should be rejected without reaching
	// the server.
	if calls.Load() != 3 {
		t.Errorf("expected 3 upstream calls before breaker opened, got %d", calls.Load())
	}

	_, err := client.Popular(ctx, 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from open breaker, got %v", err)
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	params := url.Values{"query": {"heat"}}
	a := cacheKey("search_title", params, 1)
	b := cacheKey("search_title", params, 1)
	if a != b {
		t.Error("cache key should be deterministic")
	}
	if a == cacheKey("search_title", params, 2) {
		t.Error("page must be part of the key")
	}
	if a == cacheKey("discover_genre", params, 1) {
		t.Error("operation must be part of the key")
	}
}

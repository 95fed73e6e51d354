// Package ai implements the optional inference endpoint client used to
// augment intent analysis. The engine works without it; every failure
// here is recoverable by the local lexicon path.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/observability"
)

// ErrUnavailable wraps transport failures and non-retryable statuses from
// the inference endpoint.
var ErrUnavailable = errors.New("inference endpoint unavailable")

// Inferencer is the contract the intent analyzer consumes.
type Inferencer interface {
	Infer(ctx context.Context, prompt string) (string, error)
	Available() bool
}

// Client calls a hosted inference endpoint expected to return free text
// with an embedded JSON object.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

// Available reports whether the client is configured with an endpoint.
func (c *Client) Available() bool {
	return c != nil && c.endpoint != ""
}

// Infer sends the prompt and returns the raw free-text response. Retries
// up to 3 times on 429/5xx with exponential backoff, honoring Retry-After.
func (c *Client) Infer(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("%w: endpoint not configured", ErrUnavailable)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	reqBody := inferRequest{Model: c.model, Prompt: prompt}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	respBody, err := c.doWithRetry(ctx, jsonBody)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.AIRequestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	var resp inferResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse response envelope: %w", err)
	}
	return resp.Text, nil
}

func (c *Client) doWithRetry(ctx context.Context, jsonBody []byte) ([]byte, error) {
	maxRetries := 3
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoffs[attempt]):
				}
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading body: %v", ErrUnavailable, readErr)
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoffs[attempt]):
				}
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))

			if attempt < maxRetries {
				delay := backoffs[attempt]

				// Honor Retry-After on 429.
				if resp.StatusCode == http.StatusTooManyRequests {
					if ra := resp.Header.Get("Retry-After"); ra != "" {
						if seconds, parseErr := strconv.Atoi(ra); parseErr == nil && seconds > 0 {
							delay = time.Duration(seconds) * time.Second
							if delay > 30*time.Second {
								delay = 30 * time.Second
							}
						}
					}
				}

				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			}
			continue
		}

		// 4xx other than 429 is not retryable.
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	return nil, fmt.Errorf("inference request failed after %d retries: %w", maxRetries, lastErr)
}

type inferRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type inferResponse struct {
	Text string `json:"text"`
}

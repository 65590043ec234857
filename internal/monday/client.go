// Package monday is the anti-corruption layer between InvoiceStudio and the
// monday.com GraphQL API. All outbound calls go through Client, which wraps
// the platform endpoint with circuit breaking and retry-with-backoff so the
// policy code above it never has to reason about transport failures beyond
// "the query errored".
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"invoicestudio/internal/types"
)

// QueryRunner is the query-execution capability consumed by the event source
// adapter and the policy façade. Implementations may fail or return partial
// data; callers treat a missing boards/items chain as zero rows.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string, variables map[string]any) (*QueryResult, error)
}

// QueryResult is the decoded envelope of a monday GraphQL response.
type QueryResult struct {
	Data *QueryData `json:"data"`
}

// QueryData holds the board selections this service queries for.
type QueryData struct {
	Boards []Board `json:"boards"`
}

// Board is one board selection with its paged items.
type Board struct {
	ID        string     `json:"id"`
	ItemsPage *ItemsPage `json:"items_page"`
}

// ItemsPage is a single page of board items.
type ItemsPage struct {
	Cursor string `json:"cursor"`
	Items  []Item `json:"items"`
}

// Item is one board row with the column values the query selected.
type Item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ColumnValues []ColumnValue `json:"column_values"`
}

// ColumnValue is one cell. Text is monday's display rendering; Value is the
// raw JSON-encoded cell payload, whose shape varies by column type.
type ColumnValue struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Text  string `json:"text"`
	Value string `json:"value"`
}

// graphqlError is one entry of the response-level errors array.
type graphqlError struct {
	Message string `json:"message"`
}

// RetryPolicy configures retry behavior for upstream calls.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns sensible defaults for monday API calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// Client executes GraphQL queries against the monday API. It retries 429/5xx
// responses with jittered exponential backoff (respecting Retry-After) behind
// a circuit breaker shared across all queries.
//
// Client errors are plain wrapped errors, deliberately not *types.ActionError:
// an upstream failure is an unclassified fault, and the HTTP boundary maps
// unclassified faults to 500.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	retry   RetryPolicy
	apiURL  string
	version string
	token   types.SecretString
	sleepFn func(time.Duration)
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithSleepFunc overrides the sleep between retries, for tests.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(c *Client) {
		c.sleepFn = fn
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// NewClient creates a monday API client.
func NewClient(httpClient *http.Client, apiURL, apiVersion string, token types.SecretString, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "monday-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	c := &Client{
		http:    httpClient,
		breaker: cb,
		retry:   DefaultRetryPolicy(),
		apiURL:  apiURL,
		version: apiVersion,
		token:   token,
		sleepFn: time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RunQuery posts the query with its variables and decodes the response.
// Retries are attempted on 429 and 5xx only; a response-level GraphQL errors
// array is returned as an error without retrying, since the query itself is
// wrong rather than the transport.
func (c *Client) RunQuery(ctx context.Context, query string, variables map[string]any) (*QueryResult, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("monday: encoding query: %w", err)
	}

	resp, err := c.do(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("monday: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("monday: api returned %d", resp.StatusCode)
	}

	var envelope struct {
		Data   *QueryData     `json:"data"`
		Errors []graphqlError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("monday: decoding response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, ge := range envelope.Errors {
			messages = append(messages, ge.Message)
		}
		return nil, fmt.Errorf("monday: graphql errors: %s", strings.Join(messages, "; "))
	}

	return &QueryResult{Data: envelope.Data}, nil
}

// do issues the POST with retry and circuit breaking. The payload is replayed
// from the byte slice on every attempt.
func (c *Client) do(ctx context.Context, payload []byte) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("monday: building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.token.Unmask())
		if c.version != "" {
			req.Header.Set("API-Version", c.version)
		}
		if requestID := types.GetRequestID(ctx); requestID != "" {
			req.Header.Set("X-Request-Id", requestID)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.http.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			if r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned 429")
			}
			return r, nil
		})

		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		// An open breaker will not recover within this request; stop early.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if ctx.Err() != nil {
			break
		}

		if attempt < maxAttempts-1 {
			c.sleepFn(c.computeBackoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}

	return nil, fmt.Errorf("monday: request failed: %w", lastErr)
}

// computeBackoff picks the wait before the next attempt: Retry-After when the
// server sent one, otherwise exponential backoff with full jitter clamped to
// [MinWait, MaxWait].
func (c *Client) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				wait := time.Duration(seconds) * time.Second
				if wait > c.retry.MaxWait {
					wait = c.retry.MaxWait
				}
				return wait
			}
			if t, err := http.ParseTime(retryAfter); err == nil {
				wait := time.Until(t)
				if wait <= 0 {
					return c.retry.MinWait
				}
				if wait > c.retry.MaxWait {
					wait = c.retry.MaxWait
				}
				return wait
			}
		}
	}

	base := float64(c.retry.MinWait) * math.Pow(2, float64(attempt))
	if maxWait := float64(c.retry.MaxWait); base > maxWait {
		base = maxWait
	}

	minWait := float64(c.retry.MinWait)
	if base <= minWait {
		return c.retry.MinWait
	}
	return time.Duration(minWait + rand.Float64()*(base-minWait))
}

package httpjson

// Shared JSON-over-HTTP transport for the upstream API clients
// Each upstream gets its own rate limiter and circuit breaker; every attempt is
// logged with a request id and retried on 429/5xx with full-jitter backoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrMalformedResponse marks a 2xx response that is not decodable JSON.
var ErrMalformedResponse = errors.New("malformed upstream response")

const defaultMaxResponseSize = 10 * 1024 * 1024

type Options struct {
	Name            string // used for the breaker name and log fields
	BaseURL         string
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	MaxResponseSize int64
	Retry           retry.Options
	Headers         map[string]string
	HTTPClient      *http.Client // overrides Timeout when set
}

type Client struct {
	name            string
	baseURL         string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retry           retry.Options
	headers         map[string]string
	maxResponseSize int64
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = defaultMaxResponseSize
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}

	return &Client{
		name:        opts.Name,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(limit, opts.Burst),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        opts.Name,
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			// 4xx answers mean the upstream is alive
			IsSuccessful: func(err error) bool {
				return err == nil || !retry.IsRetryable(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.LogWarn("Circuit breaker state changed",
					zap.String("upstream", name), zap.String("from", from.String()), zap.String("to", to.String()))
			},
		}),
		retry:           opts.Retry,
		headers:         opts.Headers,
		maxResponseSize: opts.MaxResponseSize,
	}
}

// Name returns the upstream name.
func (c *Client) Name() string { return c.name }

// GetJSON performs a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, c.name, path, err)
	}
	return nil
}

// Get performs a GET with rate limiting, circuit breaking and retries and
// returns the raw body of a 2xx JSON response.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body []byte
	err := retry.Do(ctx, c.retry, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			b, err := c.doOnce(ctx, path, endpoint)
			if err != nil {
				return nil, err
			}
			body = b
			return nil, nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s GET %s: %w", c.name, path, err)
	}
	return body, nil
}

func (c *Client) doOnce(ctx context.Context, path, endpoint string) ([]byte, error) {
	requestID := logging.GenerateRequestID()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "smartmoney-bot/1.0")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	// path only: query strings may carry API keys
	logging.LogRequest(requestID, http.MethodGet, path, zap.String("upstream", c.name))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogResponse(requestID, 0, time.Since(start).Milliseconds(),
			zap.String("endpoint", path), zap.String("upstream", c.name), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxResponseSize {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", path), zap.String("error", "response too large"))
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrMalformedResponse, c.maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", path), zap.String("upstream", c.name))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       truncate(body, 512),
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", path), zap.String("content_type", ct))
		return nil, fmt.Errorf("%w: unexpected content type %q", ErrMalformedResponse, ct)
	}

	logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", path), zap.String("upstream", c.name))
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

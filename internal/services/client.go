package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdash/internal/shared"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// Credentials supplies the bearer token. [session.Controller] implements it.
type Credentials interface {
	Token() string
	Refresh(ctx context.Context) error
}

// APIError is a non-success response from the provider.
type APIError struct {
	Status  int
	Message string
	Reason  string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("spotify API error %d: %s (%s)", e.Status, e.Message, e.Reason)
	}
	return fmt.Sprintf("spotify API error %d: %s", e.Status, e.Message)
}

// Unwrap maps the status onto the shared sentinel errors so callers can use [errors.Is].
func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	switch e.Status {
	case http.StatusUnauthorized:
		errs = append(errs, shared.ErrTokenExpired)
	case http.StatusNotFound:
		errs = append(errs, shared.ErrNotFound)
	case http.StatusTooManyRequests:
		errs = append(errs, shared.ErrRateLimited)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		errs = append(errs, shared.ErrServiceUnavailable)
	}
	return errs
}

// newAPIError builds an [APIError], pulling the message out of either error payload shape:
//
//	{"error": {"status": 401, "message": "..."}}
//	{"error": "invalid_grant", "error_description": "..."}
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Body: body}

	switch errField := gjson.GetBytes(body, "error"); {
	case errField.IsObject():
		e.Message = errField.Get("message").String()
		e.Reason = errField.Get("reason").String()
	case errField.Type == gjson.String:
		e.Reason = errField.String()
		e.Message = gjson.GetBytes(body, "error_description").String()
	}

	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
		if e.Message == "" {
			e.Message = "unexpected response"
		}
	}
	return e
}

// ClientOptions configures a [SpotifyClient].
type ClientOptions struct {
	BaseURL     string
	Credentials Credentials
	Logger      *log.Logger

	// HTTPClient replaces the retrying transport entirely when set.
	HTTPClient *http.Client

	RateLimit    float64 // requests per second; <= 0 disables limiting
	Burst        int
	MaxRetries   int // retries on 429 only
	Timeout      time.Duration
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// SpotifyClient wraps the Web API with bearer auth, tagged errors, client-side rate limiting,
// 429 backoff, and a single refresh-then-retry on 401.
type SpotifyClient struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyClient creates a client. Without Credentials every call fails with [shared.ErrNotAuthenticated].
func NewSpotifyClient(opts ClientOptions) *SpotifyClient {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	logger := shared.WithLogger(opts.Logger, "component", "spotify")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newRetryClient(opts, logger)
	}

	limit, burst := rate.Inf, opts.Burst
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if burst <= 0 {
		burst = 1
	}

	return &SpotifyClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		creds:      opts.Credentials,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

// newRetryClient retries only 429 responses, honoring Retry-After.
// Transport failures and every other status surface immediately.
func newRetryClient(opts ClientOptions, logger *log.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.MaxRetries
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	rc.Logger = leveledLogger{logger}
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return false, err
		}
		return resp.StatusCode == http.StatusTooManyRequests, nil
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc.StandardClient()
}

// leveledLogger adapts [log.Logger] to [retryablehttp.LeveledLogger].
type leveledLogger struct{ l *log.Logger }

func (l leveledLogger) Error(msg string, kv ...any) { l.l.Error(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.l.Debug(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.l.Debug(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.l.Warn(msg, kv...) }

// Do performs an authenticated request against endpoint (relative to the API base URL).
//
// body is JSON encoded when non-nil; the response is decoded into result when non-nil.
// With no token it fails with [shared.ErrNotAuthenticated] and makes no request.
// A 401 triggers one credential refresh followed by one retry.
func (c *SpotifyClient) Do(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if c.creds == nil || c.creds.Token() == "" {
		return shared.ErrNotAuthenticated
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	err := c.send(ctx, c.creds.Token(), method, endpoint, query, payload, result)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	c.logger.Debug("access token rejected, refreshing", "endpoint", endpoint)
	if rerr := c.creds.Refresh(ctx); rerr != nil {
		return errors.Join(err, rerr)
	}

	token := c.creds.Token()
	if token == "" {
		return errors.Join(err, shared.ErrNotAuthenticated)
	}
	return c.send(ctx, token, method, endpoint, query, payload, result)
}

func (c *SpotifyClient) send(ctx context.Context, token, method, endpoint string, query url.Values, payload []byte, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrNetwork, method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, data)
		c.logger.Debug("request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return apiErr
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

package footballdata

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
	"github.com/riskibarqy/football-etl/internal/platform/resilience"
	"github.com/riskibarqy/football-etl/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultBaseURL = "https://api.football-data.org"
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 8 << 20
	authHeader     = "X-Auth-Token"
)

var errProviderStatus = crerr.New("football-data provider returned non-2xx status")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Retry      resilience.RetryPolicy
	Logger     *logging.Logger
	// CircuitBreaker is optional; nil disables it.
	CircuitBreaker *resilience.CircuitBreaker
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retry      resilience.RetryPolicy
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		retry:      cfg.Retry,
		logger:     logger.Named("footballdata"),
		breaker:    cfg.CircuitBreaker,
	}
}

// FetchError reports that no response was obtained for a resource after
// every attempt. Err is the last transport failure.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetch issues GET baseURL/path. Transport failures and non-2xx responses
// are retried per the retry policy; the final attempt decides the result.
// A response, even non-2xx, is returned with a nil error and the caller must
// check OK. When no attempt produced a response the error is a *FetchError.
func (c *Client) Fetch(ctx context.Context, path string) (usecase.FetchResponse, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")

	var out usecase.FetchResponse
	err := c.guard(func() error {
		resp, err := c.fetchWithRetry(ctx, fullURL)
		if err != nil {
			return err
		}
		out = resp
		if isRetryableStatus(resp.StatusCode) {
			return errProviderStatus
		}
		return nil
	})
	switch {
	case err == nil:
		return out, nil
	case stderrors.Is(err, errProviderStatus):
		return out, nil
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "url", fullURL, "state", c.breaker.State())
		return usecase.FetchResponse{}, fmt.Errorf("%w: football data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	default:
		return usecase.FetchResponse{}, err
	}
}

func (c *Client) guard(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn, isCircuitFailure)
}

func (c *Client) fetchWithRetry(ctx context.Context, fullURL string) (usecase.FetchResponse, error) {
	var (
		last     usecase.FetchResponse
		obtained bool
		lastErr  error
	)

	policy := c.retry
	onBackoff := policy.OnBackoff
	policy.OnBackoff = func(attempt int, wait time.Duration) {
		c.logger.InfoContext(ctx, "football-data backoff before retry", "url", fullURL, "attempt", attempt, "wait", wait.String())
		if onBackoff != nil {
			onBackoff(attempt, wait)
		}
	}

	attempts, waitErr := policy.Do(ctx, func(attempt int) resilience.Outcome {
		resp, err := c.do(ctx, fullURL)
		if err != nil {
			obtained = false
			lastErr = err
			c.logger.WarnContext(ctx, "football-data request failed", "url", fullURL, "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				return resilience.OutcomeTerminal
			}
			return resilience.OutcomeRetryable
		}

		obtained = true
		lastErr = nil
		last = resp
		c.logger.InfoContext(ctx, "football-data response received", "url", fullURL, "attempt", attempt, "status", resp.StatusCode)
		if resp.OK() {
			return resilience.OutcomeSuccess
		}
		return resilience.OutcomeRetryable
	})

	if waitErr != nil {
		return usecase.FetchResponse{}, &FetchError{URL: fullURL, Attempts: attempts, Err: waitErr}
	}
	if !obtained {
		if lastErr == nil {
			lastErr = crerr.New("no response obtained")
		}
		return usecase.FetchResponse{}, &FetchError{URL: fullURL, Attempts: attempts, Err: lastErr}
	}

	last.Attempts = attempts
	if !last.OK() {
		c.logger.WarnContext(ctx, "football-data attempts exhausted with non-2xx response", "url", fullURL, "attempts", attempts, "status", last.StatusCode)
	}
	return last, nil
}

func (c *Client) do(ctx context.Context, fullURL string) (usecase.FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return usecase.FetchResponse{}, crerr.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(authHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return usecase.FetchResponse{}, redactedError{err: crerr.Wrap(err, "send request"), secret: c.apiKey}
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return usecase.FetchResponse{}, redactedError{err: crerr.Wrap(err, "read response body"), secret: c.apiKey}
	}

	return usecase.FetchResponse{
		URL:        fullURL,
		StatusCode: resp.StatusCode,
		Body:       append([]byte(nil), buf.B...),
	}, nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return !stderrors.Is(err, context.Canceled)
}

// redactedError keeps the API key out of error text while leaving the
// wrapped cause reachable.
type redactedError struct {
	err    error
	secret string
}

func (e redactedError) Error() string {
	return sanitizeSensitiveText(e.err.Error(), e.secret)
}

func (e redactedError) Unwrap() error { return e.err }

func sanitizeSensitiveText(value, secret string) string {
	value = strings.TrimSpace(value)
	if value == "" || secret == "" {
		return value
	}
	return strings.ReplaceAll(value, secret, "REDACTED")
}

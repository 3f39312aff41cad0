package footballdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/football-etl/internal/platform/logging"
	"github.com/riskibarqy/football-etl/internal/platform/resilience"
	"github.com/riskibarqy/football-etl/internal/usecase"
)

const testAPIKey = "secret-key-123"

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newTestClient(baseURL string, httpClient *http.Client, recorder *sleepRecorder, breaker *resilience.CircuitBreaker) *Client {
	policy := resilience.NewLinearRetryPolicy(3, 5*time.Second)
	policy.Sleep = recorder.sleep
	return NewClient(ClientConfig{
		HTTPClient:     httpClient,
		BaseURL:        baseURL,
		APIKey:         testAPIKey,
		Retry:          policy,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestClient_FetchRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Auth-Token"); got != testAPIKey {
			t.Errorf("expected auth header, got=%q", got)
		}
		if r.URL.Path != "/v4/teams/61/matches/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer server.Close()

	recorder := &sleepRecorder{}
	client := newTestClient(server.URL+"/", nil, recorder, nil)

	resp, err := client.Fetch(context.Background(), "v4/teams/61/matches/")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("expected 2xx response, got=%d", resp.StatusCode)
	}
	if string(resp.Body) != `{"matches":[]}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 http calls, got=%d", calls.Load())
	}
	if resp.Attempts != 3 {
		t.Fatalf("expected attempts=3, got=%d", resp.Attempts)
	}
	if len(recorder.waits) != 2 || recorder.waits[0] != 5*time.Second || recorder.waits[1] != 10*time.Second {
		t.Fatalf("unexpected waits %v", recorder.waits)
	}
}

func TestClient_FetchReturnsFinalNon2xxResponse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"restricted"}`))
	}))
	defer server.Close()

	recorder := &sleepRecorder{}
	client := newTestClient(server.URL, nil, recorder, nil)

	resp, err := client.Fetch(context.Background(), "/v4/competitions/2001/standings")
	if err != nil {
		t.Fatalf("expected final response without error, got %v", err)
	}
	if resp.OK() || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected final 403 response, got=%d", resp.StatusCode)
	}
	if calls.Load() != 3 || len(recorder.waits) != 2 {
		t.Fatalf("expected 3 calls and 2 waits, got calls=%d waits=%d", calls.Load(), len(recorder.waits))
	}
}

func TestClient_FetchPropagatesLastTransportError(t *testing.T) {
	t.Parallel()

	errFirst := errors.New("connection reset")
	errLast := errors.New("dial timeout")

	var calls atomic.Int32
	httpClient := &http.Client{Transport: roundTripFunc(func(_ *http.Request) (*http.Response, error) {
		if calls.Add(1) < 3 {
			return nil, errFirst
		}
		return nil, errors.Join(errLast, errors.New("token "+testAPIKey))
	})}

	recorder := &sleepRecorder{}
	client := newTestClient("http://football.invalid", httpClient, recorder, nil)

	_, err := client.Fetch(context.Background(), "v4/teams/61")
	if err == nil {
		t.Fatalf("expected fetch error")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Attempts != 3 {
		t.Fatalf("expected attempts=3, got=%d", fetchErr.Attempts)
	}
	if !errors.Is(err, errLast) {
		t.Fatalf("expected last transport error in chain, got %v", err)
	}
	if errors.Is(err, errFirst) {
		t.Fatalf("earlier transport errors must not be reported")
	}
	if strings.Contains(err.Error(), testAPIKey) {
		t.Fatalf("api key leaked into error text: %v", err)
	}
	if len(recorder.waits) != 2 {
		t.Fatalf("expected 2 waits, got=%v", recorder.waits)
	}
}

func TestClient_FetchStopsWhenContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	policy := resilience.NewLinearRetryPolicy(3, time.Hour)
	policy.Sleep = func(context.Context, time.Duration) error { return context.Canceled }
	client := NewClient(ClientConfig{BaseURL: server.URL, Retry: policy, Logger: logging.NewNop()})

	_, err := client.Fetch(context.Background(), "v4/teams/61")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClient_FetchFailsFastWhenCircuitOpen(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	httpClient := &http.Client{Transport: roundTripFunc(func(_ *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})}

	breaker := resilience.NewCircuitBreaker(1, time.Minute, 1)
	client := newTestClient("http://football.invalid", httpClient, &sleepRecorder{}, breaker)

	if _, err := client.Fetch(context.Background(), "v4/teams/61"); err == nil {
		t.Fatalf("expected first fetch to fail")
	}
	before := calls.Load()

	_, err := client.Fetch(context.Background(), "v4/teams/61")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if calls.Load() != before {
		t.Fatalf("open circuit must not reach the transport")
	}
}

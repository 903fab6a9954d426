package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

type memTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (m *memTokens) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokens) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.cleared++
	return nil
}

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestClientEntities(t *testing.T) {
	t.Parallel()

	tokens := &memTokens{token: "tok-1"}
	var seenAuth atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/dashboard/security-metrics", func(w http.ResponseWriter, r *http.Request) {
		seenAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, domain.SecurityMetrics{TotalAlerts: 42, RiskScore: 65})
	})
	mux.HandleFunc("/api/v1/alerts/trends", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		writeJSON(w, []domain.AlertTrend{{Date: "2026-01-01", High: 3}})
	})
	mux.HandleFunc("/api/v1/alerts/attackers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, []domain.Attacker{{IP: "10.0.0.1", Country: "NL", Count: 9}})
	})
	mux.HandleFunc("/api/v1/honeypot/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, domain.DigitalTwinStatus{ActiveTwins: 3, Honeypots: 12})
	})
	mux.HandleFunc("/api/v1/alerts/a-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, domain.Alert{ID: "a-1", AlertType: "ssh_bruteforce", Severity: domain.SeverityHigh})
	})

	c := newTestClient(t, mux, Options{Tokens: tokens})
	ctx := context.Background()

	m, err := c.SecurityMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, m.TotalAlerts)
	assert.Equal(t, "Bearer tok-1", seenAuth.Load())

	trends, err := c.AlertTrends(ctx, 7)
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, 3, trends[0].High)

	attackers, err := c.Attackers(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", attackers[0].IP)

	twin, err := c.DigitalTwinStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, twin.Honeypots)

	alert, err := c.Alert(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityHigh, alert.Severity)
}

func TestClientUnauthorizedClearsToken(t *testing.T) {
	t.Parallel()

	tokens := &memTokens{token: "stale"}
	var hooked atomic.Int32

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), Options{
		Tokens:         tokens,
		OnUnauthorized: func(context.Context) { hooked.Add(1) },
	})

	_, err := c.SystemHealth(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.EntitySystemHealth, authErr.Entity)

	assert.Equal(t, 1, tokens.cleared)
	assert.Empty(t, tokens.token)
	assert.EqualValues(t, 1, hooked.Load())
}

func TestClientFetchErrors(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/reports/compliance", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusNotFound)
	})
	mux.HandleFunc("/api/v1/alerts/distribution", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	})

	c := newTestClient(t, mux, Options{})
	ctx := context.Background()

	_, err := c.ComplianceStatus(ctx)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.EntityComplianceStatus, fetchErr.Entity)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.False(t, IsUnauthorized(err))

	_, err = c.SeverityDistribution(ctx)
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.EntitySeverityDistribution, fetchErr.Entity)
}

func TestClientBreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	var transitions []gobreaker.State
	var mu sync.Mutex

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), Options{
		Breaker: BreakerSettings{FailureThreshold: 2, Timeout: time.Minute},
		OnBreakerStateChange: func(_, to gobreaker.State) {
			mu.Lock()
			transitions = append(transitions, to)
			mu.Unlock()
		},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.AttackVectors(ctx, 5)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	}

	_, err := c.AttackVectors(ctx, 5)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.EqualValues(t, 2, hits.Load(), "open breaker must not reach the API")
	assert.Equal(t, "open", c.BreakerState())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestClientLogin(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		if r.PostForm.Get("username") != "analyst" || r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, domain.TokenResponse{AccessToken: "jwt-token", TokenType: "bearer"})
	}), Options{})
	ctx := context.Background()

	tok, err := c.Login(ctx, "analyst", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", tok.AccessToken)

	_, err = c.Login(ctx, "analyst", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClientLogout(t *testing.T) {
	t.Parallel()

	var seen atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		seen.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}), Options{})

	require.NoError(t, c.Logout(context.Background(), "jwt-token"))
	assert.Equal(t, "Bearer jwt-token", seen.Load())
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Options{BaseURL: "/api"})
	require.Error(t, err)
}

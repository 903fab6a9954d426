package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/api"
	"github.com/xela07ax/twinsecure-console/internal/console/handler"
	"github.com/xela07ax/twinsecure-console/internal/dashboard"
	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/history"
	"github.com/xela07ax/twinsecure-console/internal/infra"
	"github.com/xela07ax/twinsecure-console/internal/notify"
	"github.com/xela07ax/twinsecure-console/internal/prefs"
	"github.com/xela07ax/twinsecure-console/internal/sample"
)

// upstream — поддельный REST API TwinSecure на образцовых данных.
type upstream struct {
	mu        sync.Mutex
	trendDays []string
}

func (u *upstream) handler(t *testing.T) http.Handler {
	p := sample.NewProvider(nil)
	mux := http.NewServeMux()

	reply := func(path string, v func(r *http.Request) any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(v(r))
		})
	}

	reply("/api/v1/dashboard/security-metrics", func(*http.Request) any { return p.SecurityMetrics() })
	reply("/api/v1/system/status", func(*http.Request) any { return p.SystemHealth() })
	reply("/api/v1/alerts/trends", func(r *http.Request) any {
		u.mu.Lock()
		u.trendDays = append(u.trendDays, r.URL.Query().Get("days"))
		u.mu.Unlock()
		return p.AlertTrends(7)
	})
	reply("/api/v1/alerts/distribution", func(*http.Request) any { return p.SeverityDistribution() })
	reply("/api/v1/alerts/attack-vectors", func(*http.Request) any { return p.AttackVectors(5) })
	reply("/api/v1/alerts/attackers", func(*http.Request) any { return p.Attackers(5) })
	reply("/api/v1/reports/compliance", func(*http.Request) any { return p.ComplianceStatus() })
	reply("/api/v1/honeypot/status", func(*http.Request) any { return p.DigitalTwinStatus() })
	reply("/api/v1/alerts/a-1", func(*http.Request) any {
		return domain.Alert{ID: "a-1", AlertType: "ssh_bruteforce", Severity: domain.SeverityCritical, Status: domain.AlertStatusNew}
	})

	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(domain.TokenResponse{AccessToken: "opaque-token", TokenType: "bearer"})
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (u *upstream) days() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.trendDays...)
}

type env struct {
	srv      *httptest.Server
	store    *dashboard.Store
	hub      *notify.Hub
	upstream *upstream
}

func newEnv(t *testing.T, requireSession bool) *env {
	t.Helper()
	logger := zap.NewNop()

	up := &upstream{}
	upSrv := httptest.NewServer(up.handler(t))
	t.Cleanup(upSrv.Close)

	prefStore := prefs.NewMemoryStore()
	client, err := api.NewClient(api.Options{BaseURL: upSrv.URL, Tokens: prefStore, Logger: logger})
	require.NoError(t, err)

	hub := notify.NewHub(8)
	journal := history.NewJournal(history.DiscardStorage{}, history.Options{Keep: 10}, logger)

	store, err := dashboard.NewStore(dashboard.Options{
		Fetcher:  client,
		Fallback: sample.NewProvider(nil),
		Notifier: hub,
		Recorder: journal,
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	session := prefs.NewSession(client, prefStore, logger)

	console := NewConsoleServer(infra.ServerConfig{RequireSession: requireSession}, logger, Deps{
		Session:   session,
		Dashboard: handler.NewDashboardHandler(store, logger),
		History:   handler.NewHistoryHandler(journal),
		Stream:    handler.NewStreamHandler(store, hub, nil, logger),
		Auth:      handler.NewAuthHandler(session, logger),
		Prefs:     handler.NewPrefsHandler(prefStore, logger),
		Health: func() map[string]any {
			return map[string]any{"breaker": client.BreakerState()}
		},
	})

	srv := httptest.NewServer(console)
	t.Cleanup(srv.Close)

	return &env{srv: srv, store: store, hub: hub, upstream: up}
}

func (e *env) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestDashboardRequiresLogin(t *testing.T) {
	t.Parallel()
	e := newEnv(t, true)

	resp, body := e.do(t, http.MethodGet, "/api/v1/dashboard/state", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "login_required")

	resp, _ = e.do(t, http.MethodPost, "/auth/login", `{"username":"analyst","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/auth/login", `{"username":"analyst","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "opaque-token")

	resp, _ = e.do(t, http.MethodGet, "/api/v1/dashboard/state", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/v1/dashboard/state", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshAndSummary(t *testing.T) {
	t.Parallel()
	e := newEnv(t, false)

	resp, body := e.do(t, http.MethodPost, "/api/v1/dashboard/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.NotNil(t, snap.LastUpdated)
	require.NotNil(t, snap.Data.SecurityMetrics)
	assert.Empty(t, snap.LastFailures)
	assert.Equal(t, []string{"30"}, e.upstream.days())

	resp, body = e.do(t, http.MethodGet, "/api/v1/dashboard/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary domain.DashboardSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, snap.Data.SecurityMetrics.TotalAlerts, summary.TotalAlerts)

	resp, body = e.do(t, http.MethodGet, "/api/v1/dashboard/history?limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []history.CycleRecord
	require.NoError(t, json.Unmarshal(body, &records))
	assert.Len(t, records, 1)

	resp, _ = e.do(t, http.MethodGet, "/api/v1/dashboard/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPatchFilters(t *testing.T) {
	t.Parallel()
	e := newEnv(t, false)

	resp, body := e.do(t, http.MethodPatch, "/api/v1/dashboard/filters", `{"timeRange":"7d"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, domain.TimeRange7d, snap.Filters.TimeRange)
	assert.Equal(t, []string{"7"}, e.upstream.days(), "time range change triggers exactly one refresh")

	resp, _ = e.do(t, http.MethodPatch, "/api/v1/dashboard/filters", `{"timeRange":"1y"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPatch, "/api/v1/dashboard/filters", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAutoRefreshEndpoints(t *testing.T) {
	t.Parallel()
	e := newEnv(t, false)

	resp, body := e.do(t, http.MethodPost, "/api/v1/dashboard/auto-refresh/start", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"armed": false}`, string(body), "no interval, nothing to arm")

	resp, _ = e.do(t, http.MethodPatch, "/api/v1/dashboard/filters", `{"refreshInterval": 3600}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, e.store.Snapshot().AutoRefreshArmed)

	_, body = e.do(t, http.MethodPost, "/api/v1/dashboard/auto-refresh/stop", "")
	assert.JSONEq(t, `{"armed": false}`, string(body))
	assert.False(t, e.store.Snapshot().AutoRefreshArmed)

	_, body = e.do(t, http.MethodPost, "/api/v1/dashboard/auto-refresh/start", "")
	assert.JSONEq(t, `{"armed": true}`, string(body))

	resp, _ = e.do(t, http.MethodPatch, "/api/v1/dashboard/filters", `{"refreshInterval": null}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, e.store.Snapshot().AutoRefreshArmed)
}

func TestSelectionEndpoints(t *testing.T) {
	t.Parallel()
	e := newEnv(t, false)

	resp, _ := e.do(t, http.MethodPut, "/api/v1/dashboard/selection/attacker", `{"ip":"203.0.113.1","country":"US","count":35}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "203.0.113.1", e.store.Snapshot().Selection.Attacker.IP)

	resp, _ = e.do(t, http.MethodDelete, "/api/v1/dashboard/selection/attacker", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, e.store.Snapshot().Selection.Attacker)

	resp, _ = e.do(t, http.MethodPut, "/api/v1/dashboard/selection/planet", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/v1/dashboard/alerts/a-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ssh_bruteforce")
	assert.Equal(t, "a-1", e.store.Snapshot().Selection.Alert.ID)

	resp, _ = e.do(t, http.MethodGet, "/api/v1/dashboard/alerts/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestThemeEndpoints(t *testing.T) {
	t.Parallel()
	e := newEnv(t, true)

	_, body := e.do(t, http.MethodGet, "/prefs/theme", "")
	assert.JSONEq(t, `{"theme":"light"}`, string(body))

	_, body = e.do(t, http.MethodPost, "/prefs/theme/toggle", "")
	assert.JSONEq(t, `{"theme":"dark"}`, string(body))

	resp, _ := e.do(t, http.MethodPut, "/prefs/theme", `{"theme":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = e.do(t, http.MethodPut, "/prefs/theme", `{"theme":"light"}`)
	assert.JSONEq(t, `{"theme":"light"}`, string(body))
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e := newEnv(t, true)

	resp, body := e.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","breaker":"closed"}`, string(body))
}

func TestStateStream(t *testing.T) {
	t.Parallel()
	e := newEnv(t, false)

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first handler.StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "state", first.Type)
	require.NotNil(t, first.State)
	assert.Nil(t, first.State.LastUpdated)

	require.NoError(t, e.store.Refresh(context.Background()))

	// Промежуточные кадры (loading) могут быть схлопнуты, ждём итоговый
	for {
		var msg handler.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "state" && msg.State.LastUpdated != nil {
			assert.False(t, msg.State.Loading)
			break
		}
	}

	n := notify.New(notify.KindRefreshFailed, "1 of 8 dashboard panels failed to refresh", []domain.Entity{domain.EntityAttackers}, time.Now())
	require.NoError(t, e.hub.Notify(context.Background(), n))

	for {
		var msg handler.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "notification" {
			assert.Equal(t, n.ID, msg.Notification.ID)
			break
		}
	}
}

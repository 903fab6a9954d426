package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

// TokenStore — откуда брать bearer-токен и куда деть его после 401.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // запросов в секунду
	RateBurst  int
	Breaker    BreakerSettings
	HTTPClient *http.Client

	Tokens TokenStore
	// OnUnauthorized вызывается после того, как токен стёрт по 401
	OnUnauthorized       func(ctx context.Context)
	OnBreakerStateChange func(from, to gobreaker.State)

	Logger *zap.Logger
}

// Client — фасад доступа к REST API TwinSecure. Один метод на сущность.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	guard          *guard
	tokens         TokenStore
	onUnauthorized func(ctx context.Context)
	logger         *zap.Logger
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Limit(opts.RateLimit)
	if opts.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:        base,
		http:           httpClient,
		guard:          newGuard(limit, burst, opts.Breaker, opts.OnBreakerStateChange),
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger.Named("api-client"),
	}, nil
}

// BreakerState — текущее состояние предохранителя (для /health).
func (c *Client) BreakerState() string {
	return c.guard.state().String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		// Без токена запрос всё равно уйдёт, API ответит 401
		c.logger.Warn("token store unavailable", zap.Error(err))
		return
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// getJSON — общий путь для всех сущностей.
func (c *Client) getJSON(ctx context.Context, entity domain.Entity, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return &FetchError{Entity: entity, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(ctx, req)

	resp, err := c.guard.do(ctx, c.http, req)
	if err != nil {
		return &FetchError{Entity: entity, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.handleUnauthorized(ctx)
		return &AuthError{Entity: entity}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &FetchError{Entity: entity, Cause: statusError(resp)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Entity: entity, Cause: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// handleUnauthorized — аналог перехватчика 401: стираем токен и сообщаем наверх.
func (c *Client) handleUnauthorized(ctx context.Context) {
	if c.tokens != nil {
		if err := c.tokens.ClearToken(ctx); err != nil {
			c.logger.Error("failed to clear rejected token", zap.Error(err))
		}
	}
	c.logger.Warn("api rejected session token")
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
}

// Login — OAuth2 password flow, как ожидает /auth/login.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/v1/auth/login", nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.guard.do(ctx, c.http, req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		io.Copy(io.Discard, resp.Body)
		return nil, ErrInvalidCredentials
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("login: %w", statusError(resp))
	}

	var token domain.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("login: decode: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("login: empty access token")
	}
	return &token, nil
}

// Logout — JWT без состояния, серверный logout носит уведомительный характер.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/v1/auth/logout", nil), nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.guard.do(ctx, c.http, req)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("logout: unexpected status %d", resp.StatusCode)
	}
	return nil
}

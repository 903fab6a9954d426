package prefs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/infra/auth"
)

// Authenticator — вход и выход через вышестоящий API.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.TokenResponse, error)
	Logout(ctx context.Context, token string) error
}

// Session связывает вход/выход с хранилищем токена.
type Session struct {
	authn  Authenticator
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

func NewSession(authn Authenticator, store Store, logger *zap.Logger) *Session {
	return &Session{
		authn:  authn,
		store:  store,
		now:    time.Now,
		logger: logger.With(zap.String("mod", "session")),
	}
}

func (s *Session) Login(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	token, err := s.authn.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetToken(ctx, token.AccessToken); err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("username", username))
	return token, nil
}

// Logout стирает токен локально даже если API недоступен.
func (s *Session) Logout(ctx context.Context) error {
	token, err := s.store.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		if err := s.authn.Logout(ctx, token); err != nil {
			s.logger.Warn("upstream logout failed", zap.Error(err))
		}
	}
	return s.store.ClearToken(ctx)
}

// Authenticated — есть ли живой токен. Просроченный токен сразу стирается.
func (s *Session) Authenticated(ctx context.Context) (bool, error) {
	token, err := s.store.Token(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}
	if auth.Expired(token, s.now()) {
		s.logger.Info("stored token expired")
		return false, s.store.ClearToken(ctx)
	}
	return true, nil
}

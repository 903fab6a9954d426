// Package prefs хранит то, что браузерная панель держала в localStorage:
// токен доступа к API и тему оформления.
package prefs

import (
	"context"
	"errors"
	"sync"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

var ErrTokenExpired = errors.New("prefs: token already expired")

type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	Theme(ctx context.Context) (domain.Theme, error)
	SetTheme(ctx context.Context, theme domain.Theme) error
}

// MemoryStore — для тестов и dev-запуска без Redis.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	theme domain.Theme
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{theme: domain.DefaultTheme}
}

func (m *MemoryStore) Token(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SetToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *MemoryStore) Theme(context.Context) (domain.Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.theme, nil
}

func (m *MemoryStore) SetTheme(_ context.Context, theme domain.Theme) error {
	if _, err := domain.ParseTheme(string(theme)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.theme = theme
	return nil
}

// ToggleTheme переключает тему и сохраняет результат.
func ToggleTheme(ctx context.Context, s Store) (domain.Theme, error) {
	current, err := s.Theme(ctx)
	if err != nil {
		return "", err
	}
	next := current.Toggle()
	if err := s.SetTheme(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

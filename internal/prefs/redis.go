package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/infra"
	"github.com/xela07ax/twinsecure-console/internal/infra/auth"
)

// KV — подмножество *redis.Client, которым пользуется RedisStore.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore держит настройки под ключами проекта, их видят все экземпляры консоли.
type RedisStore struct {
	rdb KV
	now func() time.Time
}

func NewRedisStore(rdb KV) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (r *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := r.rdb.Get(ctx, infra.RedisKeyAuthToken).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// SetToken сохраняет токен. Для JWT ключ живёт до exp, непрозрачный токен — бессрочно.
func (r *RedisStore) SetToken(ctx context.Context, token string) error {
	var ttl time.Duration
	if exp, ok := auth.ExpiresAt(token); ok {
		ttl = exp.Sub(r.now())
		if ttl <= 0 {
			return ErrTokenExpired
		}
	}
	if err := r.rdb.Set(ctx, infra.RedisKeyAuthToken, token, ttl).Err(); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (r *RedisStore) ClearToken(ctx context.Context) error {
	if err := r.rdb.Del(ctx, infra.RedisKeyAuthToken).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Theme возвращает тему по умолчанию, если ключа нет или значение испорчено.
func (r *RedisStore) Theme(ctx context.Context) (domain.Theme, error) {
	raw, err := r.rdb.Get(ctx, infra.RedisKeyTheme).Result()
	if errors.Is(err, redis.Nil) {
		return domain.DefaultTheme, nil
	}
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	theme, err := domain.ParseTheme(raw)
	if err != nil {
		return domain.DefaultTheme, nil
	}
	return theme, nil
}

func (r *RedisStore) SetTheme(ctx context.Context, theme domain.Theme) error {
	if _, err := domain.ParseTheme(string(theme)); err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, infra.RedisKeyTheme, string(theme), 0).Err(); err != nil {
		return fmt.Errorf("store theme: %w", err)
	}
	return nil
}

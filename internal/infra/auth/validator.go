package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptyToken = errors.New("token is empty")

// Inspect разбирает JWT, выданный вышестоящим API, без проверки подписи.
// Подпись проверяет сам API, консоли нужны только срок жизни и subject,
// чтобы не слать заведомо протухший токен.
func Inspect(tokenStr string) (*jwt.RegisteredClaims, error) {
	tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrEmptyToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

// ExpiresAt возвращает момент истечения токена. ok=false, если exp не задан
// или токен не является JWT (непрозрачные токены считаем бессрочными).
func ExpiresAt(tokenStr string) (time.Time, bool) {
	claims, err := Inspect(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired сообщает, что токен пустой или его exp уже наступил.
func Expired(tokenStr string, now time.Time) bool {
	if strings.TrimSpace(tokenStr) == "" {
		return true
	}
	exp, ok := ExpiresAt(tokenStr)
	if !ok {
		return false
	}
	return !now.Before(exp)
}

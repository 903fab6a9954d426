package api

import (
	"errors"
	"fmt"

	"github.com/xela07ax/twinsecure-console/internal/domain"
)

// FetchError — сбой получения одной сущности: сеть, статус или разбор JSON.
type FetchError struct {
	Entity domain.Entity
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Entity, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// AuthError — API ответил 401. К моменту возврата токен уже стёрт.
type AuthError struct {
	Entity domain.Entity
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("fetch %s: unauthorized, login required", e.Entity)
}

// StatusError — неуспешный HTTP статус от API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

var ErrInvalidCredentials = errors.New("invalid credentials")

// IsUnauthorized — хелпер для обработчиков.
func IsUnauthorized(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// SessionChecker — интерфейс сессии консоли: есть ли живой токен вышестоящего API.
type SessionChecker interface {
	Authenticated(ctx context.Context) (bool, error)
}

// NewMiddleware закрывает группу роутов, пока пользователь не залогинен.
// Ответ 401 с login_required фронт трактует как редирект на страницу входа.
func NewMiddleware(s SessionChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := s.Authenticated(r.Context())
			if err != nil {
				logger.Error("session check failed", zap.Error(err))
				writeUnauthorized(w, http.StatusInternalServerError, "session_unavailable")
				return
			}
			if !ok {
				writeUnauthorized(w, http.StatusUnauthorized, "login_required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

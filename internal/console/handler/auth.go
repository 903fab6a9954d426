package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/api"
	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/prefs"
)

type SessionService interface {
	Login(ctx context.Context, username, password string) (*domain.TokenResponse, error)
	Logout(ctx context.Context) error
}

type AuthHandler struct {
	session SessionService
	logger  *zap.Logger
}

func NewAuthHandler(s SessionService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{session: s, logger: logger.Named("auth-handler")}
}

// Login принимает JSON или форму (как OAuth2 password flow).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	resp, err := h.session.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, api.ErrInvalidCredentials) {
		// не уточняем, что именно неверно (логин или пароль) для защиты от перебора
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if errors.Is(err, prefs.ErrTokenExpired) {
		// API ответил, но выданный токен уже истёк (расхождение часов)
		h.logger.Warn("upstream issued an expired token", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "token_expired")
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

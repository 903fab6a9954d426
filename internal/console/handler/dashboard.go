package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/dashboard"
	"github.com/xela07ax/twinsecure-console/internal/domain"
)

// DashboardStore Описываем, что нам нужно от оркестратора
type DashboardStore interface {
	Snapshot() domain.Snapshot
	Summary() domain.DashboardSummary
	Refresh(ctx context.Context) error
	SetFilters(ctx context.Context, patch domain.FilterPatch) (domain.DashboardFilters, error)
	StartAutoRefresh() bool
	StopAutoRefresh() bool
	SelectAlert(a *domain.Alert)
	SelectAttacker(a *domain.Attacker)
	SelectAttackVector(v *domain.AttackVector)
	SelectAlertByID(ctx context.Context, id string) (*domain.Alert, error)
}

type DashboardHandler struct {
	store  DashboardStore
	logger *zap.Logger
}

func NewDashboardHandler(s DashboardStore, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: s, logger: logger.Named("dashboard-handler")}
}

func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Summary())
}

// Refresh запускает цикл и отдаёт состояние после него.
// Упавшие сущности ошибкой не считаются: они видны в lastFailures.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.refreshErr(w, h.store.Refresh(r.Context())) {
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *DashboardHandler) PatchFilters(w http.ResponseWriter, r *http.Request) {
	var patch domain.FilterPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	_, err := h.store.SetFilters(r.Context(), patch)
	if isValidationError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.refreshErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *DashboardHandler) StartAutoRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"armed": h.store.StartAutoRefresh()})
}

func (h *DashboardHandler) StopAutoRefresh(w http.ResponseWriter, r *http.Request) {
	h.store.StopAutoRefresh()
	writeJSON(w, http.StatusOK, map[string]bool{"armed": false})
}

// Select — PUT /selection/{kind}, тело — выбранная сущность.
func (h *DashboardHandler) Select(w http.ResponseWriter, r *http.Request) {
	var err error
	switch chi.URLParam(r, "kind") {
	case "alert":
		var a domain.Alert
		if err = json.NewDecoder(r.Body).Decode(&a); err == nil {
			h.store.SelectAlert(&a)
		}
	case "attacker":
		var a domain.Attacker
		if err = json.NewDecoder(r.Body).Decode(&a); err == nil {
			h.store.SelectAttacker(&a)
		}
	case "attack-vector":
		var v domain.AttackVector
		if err = json.NewDecoder(r.Body).Decode(&v); err == nil {
			h.store.SelectAttackVector(&v)
		}
	default:
		writeError(w, http.StatusNotFound, "unknown selection kind")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	writeJSON(w, http.StatusOK, h.store.Snapshot().Selection)
}

func (h *DashboardHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "kind") {
	case "alert":
		h.store.SelectAlert(nil)
	case "attacker":
		h.store.SelectAttacker(nil)
	case "attack-vector":
		h.store.SelectAttackVector(nil)
	default:
		writeError(w, http.StatusNotFound, "unknown selection kind")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAlert подгружает карточку алерта и делает её выбранной.
func (h *DashboardHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.store.SelectAlertByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, dashboard.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	if err != nil {
		h.logger.Warn("alert lookup failed", zap.Error(err))
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// refreshErr пишет ответ для ошибок цикла. Вытесненный цикл не ошибка:
// его заменил более свежий. Возвращает true, если можно продолжать.
func (h *DashboardHandler) refreshErr(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil, errors.Is(err, dashboard.ErrCycleSuperseded):
		return true
	case errors.Is(err, dashboard.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Клиент ушёл, отвечать некому
		h.logger.Debug("refresh abandoned by client", zap.Error(err))
	default:
		h.logger.Error("refresh failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "refresh failed")
	}
	return false
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrUnknownTimeRange) ||
		errors.Is(err, domain.ErrInvalidInterval) ||
		errors.Is(err, domain.ErrInvalidDate) ||
		errors.Is(err, domain.ErrConflictingInterval)
}

package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/prefs"
)

type PrefsHandler struct {
	store  prefs.Store
	logger *zap.Logger
}

func NewPrefsHandler(s prefs.Store, logger *zap.Logger) *PrefsHandler {
	return &PrefsHandler{store: s, logger: logger.Named("prefs-handler")}
}

type themeBody struct {
	Theme domain.Theme `json:"theme"`
}

func (h *PrefsHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.store.Theme(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme})
}

func (h *PrefsHandler) PutTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	theme, err := domain.ParseTheme(string(body.Theme))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, theme, h.store.SetTheme(r.Context(), theme))
}

func (h *PrefsHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := prefs.ToggleTheme(r.Context(), h.store)
	h.respond(w, theme, err)
}

func (h *PrefsHandler) respond(w http.ResponseWriter, theme domain.Theme, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme})
}

func (h *PrefsHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("prefs store failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "prefs unavailable")
}

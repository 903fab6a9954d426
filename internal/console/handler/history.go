package handler

import (
	"net/http"
	"strconv"

	"github.com/xela07ax/twinsecure-console/internal/history"
)

type HistoryReader interface {
	Recent(limit int) []history.CycleRecord
}

type HistoryHandler struct {
	journal HistoryReader
}

func NewHistoryHandler(j HistoryReader) *HistoryHandler {
	return &HistoryHandler{journal: j}
}

// List — GET /api/v1/dashboard/history?limit=N, новые циклы первыми.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records := h.journal.Recent(limit)
	if records == nil {
		records = []history.CycleRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

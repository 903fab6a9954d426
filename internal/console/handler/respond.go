package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/twinsecure-console/internal/api"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeUpstreamError переводит ошибку фасада в HTTP-ответ консоли.
func writeUpstreamError(w http.ResponseWriter, err error) {
	if api.IsUnauthorized(err) {
		writeError(w, http.StatusUnauthorized, "login_required")
		return
	}
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeError(w, http.StatusBadGateway, "upstream_unavailable")
}

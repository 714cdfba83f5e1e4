package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/timgst1/crawlerprotection/internal/service"
)

type DenialHandler struct {
	Denials service.DenialLog
}

func (h DenialHandler) ListDenials(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultRecentLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid query parameter: limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	items, err := h.Denials.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLimit) {
			http.Error(w, "invalid query parameter: limit (1-"+strconv.Itoa(service.MaxRecentLimit)+")", http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func (h DenialHandler) DenialStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Denials.Stats(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var total int64
	for _, n := range stats {
		total += n
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  stats,
		"total": total,
	})
}

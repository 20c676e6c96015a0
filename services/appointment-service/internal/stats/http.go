package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/legacy"
)

type DailyReader interface {
	Daily(ctx context.Context, day time.Time) (Counts, error)
}

type Handler struct {
	source DailyReader
	logger *slog.Logger
}

func NewHandler(source DailyReader, logger *slog.Logger) *Handler {
	return &Handler{source: source, logger: logger}
}

// Daily serves GET /api/v1/stats/daily?date=YYYY-MM-DD.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}
	day, err := legacy.ParseDate(raw)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	counts, err := h.source.Daily(r.Context(), day)
	if err != nil {
		h.logger.Error("failed to load daily stats", "err", err)
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	body, err := json.Marshal(counts)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

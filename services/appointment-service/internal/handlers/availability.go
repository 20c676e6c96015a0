package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/legacy"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/storage"
)

// Schedule is satisfied by *validation.Validator.
type Schedule interface {
	IsOpen(day time.Time) bool
	BarberWorks(barber string, start model.Clock) bool
}

type Lister interface {
	List(ctx context.Context, f storage.ListFilter) ([]model.Appointment, error)
}

type AvailabilityConfig struct {
	Window          availability.Window
	Step            time.Duration
	DefaultDuration time.Duration
}

func (c AvailabilityConfig) withDefaults() AvailabilityConfig {
	if c.Window.Close.Minutes() <= c.Window.Open.Minutes() {
		c.Window = availability.Window{Open: model.NewClock(8, 0), Close: model.NewClock(20, 0)}
	}
	if c.Step <= 0 {
		c.Step = 15 * time.Minute
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = 30 * time.Minute
	}
	return c
}

type AvailabilityHandler struct {
	store    Lister
	schedule Schedule
	cfg      AvailabilityConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewAvailabilityHandler(store Lister, schedule Schedule, cfg AvailabilityConfig, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		store:    store,
		schedule: schedule,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

type availabilityResponse struct {
	Date            string        `json:"date"`
	Barber          string        `json:"barber"`
	DurationMinutes int           `json:"duration_minutes"`
	Open            bool          `json:"open"`
	Slots           []model.Clock `json:"slots"`
}

// Slots serves GET /api/v1/availability?date=&barber=[&duration_minutes=].
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	barber := strings.TrimSpace(q.Get("barber"))
	if barber == "" {
		http.Error(w, "barber required", http.StatusBadRequest)
		return
	}
	day, err := legacy.ParseDate(q.Get("date"))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	duration := h.cfg.DefaultDuration
	if raw := strings.TrimSpace(q.Get("duration_minutes")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = time.Duration(minutes) * time.Minute
	}

	resp := availabilityResponse{
		Date:            day.Format("2006-01-02"),
		Barber:          barber,
		DurationMinutes: int(duration / time.Minute),
		Open:            h.schedule.IsOpen(day),
		Slots:           []model.Clock{},
	}
	if !resp.Open {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	booked, err := h.store.List(r.Context(), storage.ListFilter{Date: &day, Barber: barber, Limit: 500})
	if err != nil {
		httpx.Logger(r.Context(), h.logger).Error("failed to list appointments", "err", err)
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	start, end := h.cfg.Window.On(day)
	works := func(t time.Time) bool {
		return h.schedule.BarberWorks(barber, model.NewClock(t.Hour(), t.Minute()))
	}
	for _, t := range availability.AvailableSlots(start, end, duration, h.cfg.Step, availability.Busy(booked), h.now().UTC(), works) {
		resp.Slots = append(resp.Slots, model.NewClock(t.Hour(), t.Minute()))
	}
	writeJSON(w, http.StatusOK, resp)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/legacy"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/pricing"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/storage"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/validation"
)

type Store interface {
	storage.TxRunner
	Get(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context, f storage.ListFilter) ([]model.Appointment, error)
}

type Quoter interface {
	Quote(ctx context.Context, appt model.Appointment) pricing.Quote
}

type Validator interface {
	Validate(appt model.Appointment) error
}

type Importer interface {
	ImportText(ctx context.Context, raw string) (legacy.Result, error)
}

type AppointmentHandler struct {
	store     Store
	quoter    Quoter
	validator Validator
	importer  Importer
	catalog   catalog.Provider
	codes     legacy.CodeTable
	logger    *slog.Logger
	newID     func() string
}

func NewAppointmentHandler(store Store, quoter Quoter, validator Validator, importer Importer, cat catalog.Provider, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		store:     store,
		quoter:    quoter,
		validator: validator,
		importer:  importer,
		catalog:   cat,
		codes:     legacy.DefaultCodes(),
		logger:    logger,
		newID:     uuid.NewString,
	}
}

type appointmentRequest struct {
	CustomerName    string   `json:"customer_name"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Services        []string `json:"services"`
	BarberName      string   `json:"barber_name"`
	BeverageChoice  string   `json:"beverage_choice"`
	IsVIP           bool     `json:"is_vip"`
}

type serviceItem struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Style model.StyleReference `json:"style"`
}

type appointmentResponse struct {
	ID              string         `json:"id"`
	Date            string         `json:"date"`
	StartTime       model.Clock    `json:"start_time"`
	DurationMinutes int            `json:"duration_minutes"`
	CustomerName    string         `json:"customer_name"`
	BarberName      string         `json:"barber_name,omitempty"`
	BeverageChoice  string         `json:"beverage_choice,omitempty"`
	IsVIP           bool           `json:"is_vip"`
	Services        []serviceItem  `json:"services"`
	Quote           *pricing.Quote `json:"quote,omitempty"`
}

func toResponse(appt model.Appointment, quote *pricing.Quote) appointmentResponse {
	items := make([]serviceItem, 0, len(appt.Services))
	for _, s := range appt.Services {
		items = append(items, serviceItem{ID: s.ID, Name: s.Name, Style: s.Style})
	}
	return appointmentResponse{
		ID:              appt.ID,
		Date:            appt.Date.Format("2006-01-02"),
		StartTime:       appt.StartTime,
		DurationMinutes: int(appt.Duration / time.Minute),
		CustomerName:    appt.CustomerName,
		BarberName:      appt.BarberName,
		BeverageChoice:  appt.BeverageChoice,
		IsVIP:           appt.IsVIP,
		Services:        items,
		Quote:           quote,
	}
}

// decodeAppointment parses a request body. Services accept style names or legacy codes.
func (h *AppointmentHandler) decodeAppointment(r *http.Request, id string) (model.Appointment, error) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.Appointment{}, badRequest("invalid json body")
	}
	date, err := legacy.ParseDate(req.Date)
	if err != nil {
		return model.Appointment{}, badRequest("invalid date")
	}
	start, err := model.ParseClock(req.StartTime)
	if err != nil {
		return model.Appointment{}, badRequest("invalid start_time")
	}
	if req.DurationMinutes < 0 {
		return model.Appointment{}, badRequest("invalid duration_minutes")
	}

	appt := model.Appointment{
		ID:             id,
		Date:           date,
		StartTime:      start,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		BarberName:     strings.TrimSpace(req.BarberName),
		BeverageChoice: strings.TrimSpace(req.BeverageChoice),
		IsVIP:          req.IsVIP,
	}
	for _, code := range req.Services {
		ref, ok := h.codes.Resolve(code)
		if !ok {
			return model.Appointment{}, badRequest(fmt.Sprintf("unknown service %q", code))
		}
		appt.Services = append(appt.Services, model.AppointmentService{
			ID:            h.newID(),
			Name:          catalog.DisplayName(h.catalog, ref),
			Style:         ref,
			AppointmentID: id,
		})
	}
	return appt, nil
}

func badRequest(msg string) error {
	return &validation.Error{Status: http.StatusBadRequest, Message: msg}
}

func (h *AppointmentHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) Item(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.ListFilter{Barber: strings.TrimSpace(q.Get("barber")), Limit: 50}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := legacy.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		f.Date = &d
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			f.Limit = n
		}
	}

	appts, err := h.store.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err, "failed to list appointments")
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toResponse(appt, nil))
	}
	writeJSON(w, http.StatusOK, items)
}

func barberBusy(appt model.Appointment) error {
	return validation.Conflict("%s is already booked at %s on %s", appt.BarberName, appt.StartTime, appt.Date.Format("2006-01-02"))
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request) {
	appt, err := h.decodeAppointment(r, h.newID())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := h.validator.Validate(appt); err != nil {
		h.fail(w, r, err, "")
		return
	}

	ctx := r.Context()
	quote := h.quoter.Quote(ctx, appt)
	err = h.store.InTx(ctx, func(tx storage.Tx) error {
		busy, err := tx.BarberBusy(ctx, appt)
		if err != nil {
			return err
		}
		if busy {
			return barberBusy(appt)
		}
		if err := tx.Create(ctx, appt, storage.SourceAPI); err != nil {
			return err
		}
		evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentCreated, appt, quote.Total.StringFixed(2))
		if err != nil {
			return err
		}
		return tx.Emit(ctx, evt)
	})
	if err != nil {
		h.fail(w, r, err, "failed to create appointment")
		return
	}
	httpx.Logger(ctx, h.logger).Info("appointment created", "appointment_id", appt.ID)
	writeJSON(w, http.StatusCreated, toResponse(appt, &quote))
}

func (h *AppointmentHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	appt, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	quote := h.quoter.Quote(r.Context(), appt)
	writeJSON(w, http.StatusOK, toResponse(appt, &quote))
}

func (h *AppointmentHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	appt, err := h.decodeAppointment(r, id)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := h.validator.Validate(appt); err != nil {
		h.fail(w, r, err, "")
		return
	}

	ctx := r.Context()
	quote := h.quoter.Quote(ctx, appt)
	err = h.store.InTx(ctx, func(tx storage.Tx) error {
		busy, err := tx.BarberBusy(ctx, appt)
		if err != nil {
			return err
		}
		if busy {
			return barberBusy(appt)
		}
		if err := tx.Update(ctx, appt); err != nil {
			return err
		}
		evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentUpdated, appt, quote.Total.StringFixed(2))
		if err != nil {
			return err
		}
		return tx.Emit(ctx, evt)
	})
	if err != nil {
		h.fail(w, r, err, "failed to update appointment")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(appt, &quote))
}

func (h *AppointmentHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	appt, err := h.store.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	err = h.store.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentDeleted, appt, "")
		if err != nil {
			return err
		}
		return tx.Emit(ctx, evt)
	})
	if err != nil {
		h.fail(w, r, err, "failed to delete appointment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Price quotes a stored appointment.
func (h *AppointmentHandler) Price(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	appt, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, h.quoter.Quote(r.Context(), appt))
}

// Quote prices an appointment that has not been booked. Opening days and
// barber hours are not enforced here.
func (h *AppointmentHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	appt, err := h.decodeAppointment(r, "")
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, h.quoter.Quote(r.Context(), appt))
}

// fail maps err to a status. msg is used for unexpected errors only.
func (h *AppointmentHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Message, verr.Status)
	case storage.IsNotFound(err):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case storage.IsConflict(err):
		http.Error(w, "appointment already exists", http.StatusConflict)
	case storage.IsInvalidInput(err):
		http.Error(w, "invalid id", http.StatusBadRequest)
	default:
		if msg == "" {
			msg = "internal error"
		}
		httpx.Logger(r.Context(), h.logger).Error(msg, "err", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

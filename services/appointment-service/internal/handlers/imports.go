package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/legacy"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/storage"
)

type importResponse struct {
	DryRun         bool             `json:"dry_run"`
	Stored         bool             `json:"stored"`
	Successes      int              `json:"successes"`
	AppointmentIDs []string         `json:"appointment_ids"`
	Failures       []legacy.Failure `json:"failures"`
	Error          string           `json:"error,omitempty"`
}

// ImportLegacy accepts a raw legacy XML export as the request body.
func (h *AppointmentHandler) ImportLegacy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unreadable import body", http.StatusBadRequest)
		return
	}
	dryRun := isTruthy(r.URL.Query().Get("dry_run"))

	ctx := r.Context()
	res, err := h.importer.ImportText(ctx, string(raw))
	resp := importResponse{
		DryRun:         dryRun,
		Successes:      len(res.Successes),
		AppointmentIDs: make([]string, 0, len(res.Successes)),
		Failures:       res.Failures,
	}
	if resp.Failures == nil {
		resp.Failures = []legacy.Failure{}
	}
	for _, appt := range res.Successes {
		resp.AppointmentIDs = append(resp.AppointmentIDs, appt.ID)
	}
	if err != nil {
		if errors.Is(err, legacy.ErrMalformedDocument) {
			resp.Error = err.Error()
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		h.fail(w, r, err, "import failed")
		return
	}

	if !dryRun {
		if err := storage.SaveImported(ctx, h.store, res.Successes); err != nil {
			h.fail(w, r, err, "failed to store imported appointments")
			return
		}
		resp.Stored = len(res.Successes) > 0
	}
	writeJSON(w, http.StatusOK, resp)
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

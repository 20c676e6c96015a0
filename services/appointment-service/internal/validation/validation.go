package validation

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/pricing"
)

// Error carries the HTTP status the API answers with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Conflict is returned by callers that detect a double booking.
func Conflict(format string, args ...any) *Error {
	return &Error{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

type Config struct {
	OpenDays []time.Weekday
	// BarberBuckets limits a barber (lower-case name) to the named time buckets.
	BarberBuckets map[string][]string
}

func DefaultConfig() Config {
	return Config{
		OpenDays:      []time.Weekday{time.Friday, time.Saturday, time.Sunday},
		BarberBuckets: map[string][]string{"gerrit": {"peak"}},
	}
}

type Validator struct {
	catalog catalog.Provider
	rules   pricing.Rules
	open    map[time.Weekday]bool
	barbers map[string][]string
}

func New(cat catalog.Provider, rules pricing.Rules, cfg Config) *Validator {
	open := make(map[time.Weekday]bool, len(cfg.OpenDays))
	for _, d := range cfg.OpenDays {
		open[d] = true
	}
	barbers := make(map[string][]string, len(cfg.BarberBuckets))
	for name, buckets := range cfg.BarberBuckets {
		barbers[strings.ToLower(strings.TrimSpace(name))] = buckets
	}
	return &Validator{catalog: cat, rules: rules, open: open, barbers: barbers}
}

// Validate returns nil or a *Error.
func (v *Validator) Validate(a model.Appointment) error {
	if err := a.Validate(); err != nil {
		return badRequest("%v", err)
	}
	if a.Date.IsZero() {
		return badRequest("date is required")
	}
	if a.Duration <= 0 {
		return badRequest("duration must be positive")
	}
	if !v.IsOpen(a.Date) {
		return badRequest("closed on %s: %s", a.Date.Weekday(), v.openingHint())
	}

	var shaven, shaped bool
	for _, s := range a.Services {
		if _, ok := v.catalog.Lookup(s.Style); !ok {
			return badRequest("unknown service style %s", s.Style)
		}
		shaven = shaven || s.Style == model.CleanShaven
		shaped = shaped || s.Style == model.BeardShaped
	}
	if shaven && shaped {
		return badRequest("service conflict: %s cannot be combined with %s", model.CleanShaven, model.BeardShaped)
	}

	required := catalog.MinimumDuration(v.catalog, a.Styles()...)
	if a.Duration < required {
		return badRequest("duration %s is shorter than the required %s", a.Duration, required)
	}

	if !v.BarberWorks(a.BarberName, a.StartTime) {
		allowed := v.barbers[strings.ToLower(strings.TrimSpace(a.BarberName))]
		return badRequest("%s only works during %s hours", a.BarberName, strings.Join(allowed, ", "))
	}
	return nil
}

func (v *Validator) IsOpen(day time.Time) bool {
	return v.open[day.Weekday()]
}

// BarberWorks reports whether barber takes bookings starting at start.
// Barbers without a restriction work whenever the shop is open.
func (v *Validator) BarberWorks(barber string, start model.Clock) bool {
	allowed, ok := v.barbers[strings.ToLower(strings.TrimSpace(barber))]
	if !ok {
		return true
	}
	return contains(allowed, pricing.TimeBucketFor(v.rules, start))
}

func (v *Validator) openingHint() string {
	if len(v.open) == 3 && v.open[time.Friday] && v.open[time.Saturday] && v.open[time.Sunday] {
		return "closed Monday-Thursday"
	}
	var days []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if v.open[d] {
			days = append(days, d.String())
		}
	}
	return "open " + strings.Join(days, ", ")
}

func contains(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

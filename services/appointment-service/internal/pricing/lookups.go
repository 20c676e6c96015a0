package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
)

// LoyaltyLookup counts a customer's visits strictly before a point in time.
type LoyaltyLookup interface {
	PriorVisits(ctx context.Context, customer string, before time.Time) (int, error)
}

// GroupLookup counts other bookings that overlap a slot.
type GroupLookup interface {
	OverlappingBookings(ctx context.Context, slot Slot) (int, error)
}

type Slot struct {
	Date     time.Time
	Start    model.Clock
	Duration time.Duration
	// ExcludeID keeps an appointment from overlapping itself.
	ExcludeID string
}

func (s Slot) StartAt() time.Time {
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, s.Start.Hour, s.Start.Minute, 0, 0, s.Date.Location())
}

func (s Slot) EndAt() time.Time {
	return s.StartAt().Add(s.Duration)
}

func SlotOf(a model.Appointment) Slot {
	return Slot{Date: a.Date, Start: a.StartTime, Duration: a.Duration, ExcludeID: a.ID}
}

// StaticLoyalty is keyed by customer name, case-insensitively.
type StaticLoyalty map[string]int

func (s StaticLoyalty) PriorVisits(_ context.Context, customer string, _ time.Time) (int, error) {
	customer = strings.TrimSpace(customer)
	if n, ok := s[customer]; ok {
		return n, nil
	}
	for k, n := range s {
		if strings.EqualFold(k, customer) {
			return n, nil
		}
	}
	return 0, nil
}

// StaticGroups reports the same overlap count for every slot.
type StaticGroups int

func (s StaticGroups) OverlappingBookings(context.Context, Slot) (int, error) {
	return int(s), nil
}

package model

import (
	"errors"
	"strings"
	"time"
)

type Appointment struct {
	ID           string
	Date         time.Time
	StartTime    Clock
	Duration     time.Duration
	CustomerName string
	Services     []AppointmentService
	// Empty means no barber requested.
	BarberName     string
	BeverageChoice string
	IsVIP          bool
}

// AppointmentService carries no price; prices are derived from Style through the catalog.
type AppointmentService struct {
	ID            string
	Name          string
	Style         StyleReference
	AppointmentID string
}

var (
	ErrMissingCustomer = errors.New("customer name is required")
	ErrNoServices      = errors.New("at least one service is required")
)

func (a Appointment) Validate() error {
	if strings.TrimSpace(a.CustomerName) == "" {
		return ErrMissingCustomer
	}
	if len(a.Services) == 0 {
		return ErrNoServices
	}
	return nil
}

// Start combines Date and StartTime in the location of Date.
func (a Appointment) Start() time.Time {
	y, m, d := a.Date.Date()
	return time.Date(y, m, d, a.StartTime.Hour, a.StartTime.Minute, 0, 0, a.Date.Location())
}

func (a Appointment) End() time.Time {
	return a.Start().Add(a.Duration)
}

// Styles returns the style of every service in order.
func (a Appointment) Styles() []StyleReference {
	out := make([]StyleReference, 0, len(a.Services))
	for _, s := range a.Services {
		out = append(out, s.Style)
	}
	return out
}

// DateOf truncates t to a calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

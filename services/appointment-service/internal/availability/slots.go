package availability

import (
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Busy returns the occupied interval of every appointment.
func Busy(appts []model.Appointment) []Interval {
	out := make([]Interval, 0, len(appts))
	for _, a := range appts {
		out = append(out, Interval{Start: a.Start(), End: a.End()})
	}
	return out
}

// Window is the opening time range of a day.
type Window struct {
	Open  model.Clock
	Close model.Clock
}

func (w Window) On(day time.Time) (time.Time, time.Time) {
	day = model.DateOf(day)
	return day.Add(time.Duration(w.Open.Minutes()) * time.Minute), day.Add(time.Duration(w.Close.Minutes()) * time.Minute)
}

// AvailableSlots returns start times in [windowStart, windowEnd) where an
// appointment of length duration fits without touching a busy interval.
// Starts before now and starts rejected by allow are skipped; allow may be nil.
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time, allow func(time.Time) bool) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) || windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if allow != nil && !allow(t) {
			continue
		}
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

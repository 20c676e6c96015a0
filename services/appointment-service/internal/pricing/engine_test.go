package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

// 2024-03-22 is a Friday, not the 15th.
var friday = model.Date(2024, time.March, 22)

func appt(styles ...model.StyleReference) model.Appointment {
	a := model.Appointment{
		ID:           "a-1",
		Date:         friday,
		StartTime:    model.NewClock(12, 0),
		CustomerName: "Ann",
	}
	for _, s := range styles {
		a.Services = append(a.Services, model.AppointmentService{Style: s})
	}
	a.Duration = catalog.MinimumDuration(catalog.Default(), styles...)
	return a
}

func eur(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func price(t *testing.T, e *Engine, a model.Appointment) decimal.Decimal {
	t.Helper()
	return e.Price(context.Background(), a)
}

func assertPrice(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(eur(want)) {
		t.Fatalf("expected %s, got %s", want, got.StringFixed(2))
	}
}

func defaultEngine() *Engine {
	return NewEngine(catalog.Default(), DefaultRules(), nil, nil, nil)
}

type failingLookup struct{}

func (failingLookup) PriorVisits(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("history unavailable")
}

func (failingLookup) OverlappingBookings(context.Context, Slot) (int, error) {
	return 0, errors.New("calendar unavailable")
}

func TestPrice_AllModifiersNeutralIsBasePrice(t *testing.T) {
	assertPrice(t, price(t, defaultEngine(), appt(model.Short)), "25.00")
}

func TestNewEngine_NilCatalogUsesDefaultTable(t *testing.T) {
	e := NewEngine(nil, DefaultRules(), nil, nil, nil)
	assertPrice(t, price(t, e, appt(model.Short, model.Faded)), price(t, defaultEngine(), appt(model.Short, model.Faded)).StringFixed(2))
}

func TestPrice_ThreeServicesPremium(t *testing.T) {
	// 25 + 30 + 35 = 90, +10%
	assertPrice(t, price(t, defaultEngine(), appt(model.Short, model.Medium, model.Long)), "99.00")
}

func TestPrice_TwoServicesPremium(t *testing.T) {
	assertPrice(t, price(t, defaultEngine(), appt(model.Short, model.Medium)), "57.75")
}

func TestPrice_ComboDiscount(t *testing.T) {
	// (25 + 15) * 1.05 * 0.9
	assertPrice(t, price(t, defaultEngine(), appt(model.Short, model.BeardShaped)), "37.80")
}

func TestPrice_PaydaySurcharge(t *testing.T) {
	a := appt(model.Short)
	a.Date = model.Date(2024, time.March, 15)
	assertPrice(t, price(t, defaultEngine(), a), "31.25")
}

func TestPrice_SundayFee(t *testing.T) {
	a := appt(model.Short)
	a.Date = model.Date(2024, time.March, 24)
	assertPrice(t, price(t, defaultEngine(), a), "45.00")
}

func TestPrice_SundayFeeIsFlatAtItsPosition(t *testing.T) {
	// Sunday fee lands before the time-of-day modifier: (25 + 20) * 1.3
	a := appt(model.Short)
	a.Date = model.Date(2024, time.March, 24)
	a.StartTime = model.NewClock(18, 0)
	assertPrice(t, price(t, defaultEngine(), a), "58.50")
}

func TestPrice_TimeOfDay(t *testing.T) {
	cases := []struct {
		start model.Clock
		want  string
	}{
		{model.NewClock(7, 59), "25.00"},
		{model.NewClock(8, 0), "20.00"},
		{model.NewClock(9, 45), "20.00"},
		{model.NewClock(10, 0), "25.00"},
		{model.NewClock(15, 30), "21.25"},
		{model.NewClock(17, 0), "32.50"},
		{model.NewClock(19, 59), "32.50"},
		{model.NewClock(20, 0), "25.00"},
	}
	e := defaultEngine()
	for _, tc := range cases {
		a := appt(model.Short)
		a.StartTime = tc.start
		got := price(t, e, a)
		if !got.Equal(eur(tc.want)) {
			t.Fatalf("start %s: expected %s, got %s", tc.start, tc.want, got.StringFixed(2))
		}
	}
}

func TestPrice_Barbers(t *testing.T) {
	cases := map[string]string{
		"Gerrit": "30.00",
		"GERRIT": "30.00",
		"todd":   "20.00",
		"Bob":    "25.00",
		"":       "25.00",
	}
	e := defaultEngine()
	for barber, want := range cases {
		a := appt(model.Short)
		a.BarberName = barber
		got := price(t, e, a)
		if !got.Equal(eur(want)) {
			t.Fatalf("barber %q: expected %s, got %s", barber, want, got.StringFixed(2))
		}
	}
}

func TestPrice_BarberTableIsData(t *testing.T) {
	rules := DefaultRules()
	rules.Barbers = map[string]BarberRule{"sam": {Percent: eur("0.10"), Flat: eur("1")}}
	e := NewEngine(catalog.Default(), rules, nil, nil, nil)
	a := appt(model.Short)
	a.BarberName = "Sam"
	assertPrice(t, price(t, e, a), "28.50")
}

func TestPrice_DurationFee(t *testing.T) {
	cases := map[int]string{
		20: "25.00",
		21: "27.50",
		35: "27.50",
		36: "30.00",
		10: "25.00",
	}
	e := defaultEngine()
	for minutes, want := range cases {
		a := appt(model.Short)
		a.Duration = time.Duration(minutes) * time.Minute
		got := price(t, e, a)
		if !got.Equal(eur(want)) {
			t.Fatalf("%d minutes: expected %s, got %s", minutes, want, got.StringFixed(2))
		}
	}
}

func TestPrice_LoyaltyTiers(t *testing.T) {
	loyalty := StaticLoyalty{"ann": 10, "Bea": 4, "Cid": 25}
	e := NewEngine(catalog.Default(), DefaultRules(), loyalty, nil, nil)
	cases := map[string]string{"Ann": "22.50", "Bea": "25.00", "Cid": "21.25", "Dan": "25.00"}
	for customer, want := range cases {
		a := appt(model.Short)
		a.CustomerName = customer
		got := price(t, e, a)
		if !got.Equal(eur(want)) {
			t.Fatalf("%s: expected %s, got %s", customer, want, got.StringFixed(2))
		}
	}
}

func TestPrice_GroupDiscount(t *testing.T) {
	cases := map[int]string{0: "25.00", 1: "22.50", 3: "21.25", 4: "21.25", 9: "20.00"}
	for overlaps, want := range cases {
		e := NewEngine(catalog.Default(), DefaultRules(), nil, StaticGroups(overlaps), nil)
		got := price(t, e, appt(model.Short))
		if !got.Equal(eur(want)) {
			t.Fatalf("%d overlaps: expected %s, got %s", overlaps, want, got.StringFixed(2))
		}
	}
}

func TestPrice_FailingLookupsAreNeutral(t *testing.T) {
	e := NewEngine(catalog.Default(), DefaultRules(), failingLookup{}, failingLookup{}, nil)
	assertPrice(t, price(t, e, appt(model.Short)), "25.00")
}

func TestPrice_VIPIsAppliedLast(t *testing.T) {
	a := appt(model.Short)
	a.BarberName = "Todd"
	a.IsVIP = true
	// (25 - 5) * 1.5; applying VIP first would give 25 * 1.5 - 5 = 32.50.
	q := defaultEngine().Quote(context.Background(), a)
	assertPrice(t, q.Total, "30.00")
	if last := q.Steps[len(q.Steps)-1]; last.Name != StepVIP {
		t.Fatalf("expected vip as last step, got %s", last.Name)
	}
}

func TestPrice_NoServices(t *testing.T) {
	a := appt()
	a.BarberName = "todd"
	a.IsVIP = true
	assertPrice(t, price(t, defaultEngine(), a), "0.00")
}

func TestPrice_FlatDiscountClampsAtZero(t *testing.T) {
	rules := DefaultRules()
	rules.Barbers = map[string]BarberRule{"intern": {Flat: eur("-50")}}
	e := NewEngine(catalog.Default(), rules, nil, nil, nil)
	a := appt(model.Short)
	a.BarberName = "intern"
	a.Duration = 50 * time.Minute
	// clamped to 0 by the barber step, then 2 duration steps
	assertPrice(t, price(t, e, a), "5.00")
}

func TestQuote_Breakdown(t *testing.T) {
	a := appt(model.Short, model.BeardShaped)
	a.Date = model.Date(2024, time.March, 15)
	a.StartTime = model.NewClock(9, 0)
	a.BarberName = "gerrit"
	a.IsVIP = true
	e := NewEngine(catalog.Default(), DefaultRules(), StaticLoyalty{"Ann": 5}, StaticGroups(1), nil)

	q := e.Quote(context.Background(), a)
	var names []string
	for _, s := range q.Steps {
		names = append(names, s.Name)
	}
	want := []string{
		StepBase, StepServiceCount, StepCombo, StepPayday, StepSunday, StepTimeOfDay,
		StepBarber, StepDuration, StepLoyalty, StepGroup, StepVIP,
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("step order mismatch (-want +got):\n%s", diff)
	}
	// 40 * 1.05 * 0.9 * 1.25 * 0.8 * 1.2 * 0.95 * 0.9 * 1.5
	assertPrice(t, q.Total, "58.17")
	assertPrice(t, q.Base, "40.00")

	running := decimal.Zero
	for _, s := range q.Steps {
		running = running.Add(s.Delta)
		if !running.Equal(s.Total) {
			t.Fatalf("step %s: deltas do not add up to %s", s.Name, s.Total)
		}
	}
}

func TestDurationFee(t *testing.T) {
	fee := eur("2.50")
	if got := DurationFee(46*time.Minute, 30*time.Minute, 15*time.Minute, fee); !got.Equal(eur("5.00")) {
		t.Fatalf("expected 5.00, got %s", got)
	}
	if got := DurationFee(30*time.Minute, 30*time.Minute, 15*time.Minute, fee); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
	if got := DurationFee(90*time.Minute, 0, 0, fee); !got.IsZero() {
		t.Fatalf("zero step must not charge, got %s", got)
	}
}

func TestTierRate_UnsortedTable(t *testing.T) {
	tiers := []Tier{{Min: 20, Rate: eur("0.15")}, {Min: 5, Rate: eur("0.05")}, {Min: 10, Rate: eur("0.10")}}
	if got := TierRate(tiers, 12); !got.Equal(eur("0.10")) {
		t.Fatalf("expected 0.10, got %s", got)
	}
	if got := TierRate(tiers, 4); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestTimeBucketFor(t *testing.T) {
	r := DefaultRules()
	if got := TimeBucketFor(r, model.NewClock(16, 59)); got != "happy-hour" {
		t.Fatalf("expected happy-hour, got %q", got)
	}
	if got := TimeBucketFor(r, model.NewClock(12, 0)); got != "" {
		t.Fatalf("expected no bucket, got %q", got)
	}
}

func TestComboMultiplier(t *testing.T) {
	c := catalog.Default()
	d := eur("0.10")
	if got := ComboMultiplier(c, d, []model.StyleReference{model.Faded, model.HotTowelShave}); !got.Equal(eur("0.9")) {
		t.Fatalf("expected 0.9, got %s", got)
	}
	if got := ComboMultiplier(c, d, []model.StyleReference{model.CleanShaven, model.HotTowelShave}); !got.Equal(eur("1")) {
		t.Fatalf("beard-only appointments get no combo, got %s", got)
	}
}

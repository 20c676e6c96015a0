package pricing

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Step names, in pipeline order.
const (
	StepBase         = "base"
	StepServiceCount = "service_count"
	StepCombo        = "combo"
	StepPayday       = "payday"
	StepSunday       = "sunday"
	StepTimeOfDay    = "time_of_day"
	StepBarber       = "barber"
	StepDuration     = "duration"
	StepLoyalty      = "loyalty"
	StepGroup        = "group"
	StepVIP          = "vip"
)

// Step records one pipeline stage. Total is the running total after it.
type Step struct {
	Name  string          `json:"name"`
	Delta decimal.Decimal `json:"delta"`
	Total decimal.Decimal `json:"total"`
}

type Quote struct {
	Base  decimal.Decimal `json:"base"`
	Total decimal.Decimal `json:"total"`
	Steps []Step          `json:"steps"`
}

type Engine struct {
	catalog catalog.Provider
	rules   Rules
	loyalty LoyaltyLookup
	groups  GroupLookup
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewEngine builds an engine. Nil lookups are treated as "no history" and a
// nil catalog means the default style table.
func NewEngine(cat catalog.Provider, rules Rules, loyalty LoyaltyLookup, groups GroupLookup, logger *slog.Logger) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rules.CountPremiums = sortTiers(rules.CountPremiums)
	rules.LoyaltyTiers = sortTiers(rules.LoyaltyTiers)
	rules.GroupTiers = sortTiers(rules.GroupTiers)
	return &Engine{
		catalog: cat,
		rules:   rules,
		loyalty: loyalty,
		groups:  groups,
		logger:  logger,
		tracer:  otel.Tracer("pricing"),
	}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) Price(ctx context.Context, appt model.Appointment) decimal.Decimal {
	return e.Quote(ctx, appt).Total
}

// Quote runs the full pipeline. It never fails: missing data and lookup
// errors make the affected step neutral.
func (e *Engine) Quote(ctx context.Context, appt model.Appointment) Quote {
	ctx, span := e.tracer.Start(ctx, "pricing.quote", trace.WithAttributes(
		attribute.String("appointment.id", appt.ID),
		attribute.Int("appointment.services", len(appt.Services)),
	))
	defer span.End()

	styles := appt.Styles()
	r := e.rules
	q := &pipeline{}

	base := decimal.Zero
	for _, s := range styles {
		base = base.Add(catalog.BasePrice(e.catalog, s))
	}
	q.set(StepBase, base)

	q.mul(StepServiceCount, ServiceCountMultiplier(r.CountPremiums, len(styles)))
	q.mul(StepCombo, ComboMultiplier(e.catalog, r.ComboDiscount, styles))
	q.mul(StepPayday, PaydayMultiplier(r, appt.Date))
	q.add(StepSunday, SundayFee(r, appt.Date))
	q.mul(StepTimeOfDay, TimeOfDayMultiplier(r, appt.StartTime))

	rule, _ := r.Barber(appt.BarberName)
	q.barber(rule)

	required := catalog.MinimumDuration(e.catalog, styles...)
	q.add(StepDuration, DurationFee(appt.Duration, required, r.DurationStep, r.DurationStepFee))

	visits := e.priorVisits(ctx, appt)
	q.mul(StepLoyalty, discountMultiplier(TierRate(r.LoyaltyTiers, visits)))

	overlaps := e.overlapping(ctx, appt)
	q.mul(StepGroup, discountMultiplier(TierRate(r.GroupTiers, overlaps)))

	vip := decimal.NewFromInt(1)
	if appt.IsVIP {
		vip = r.VIPMultiplier
	}
	q.mul(StepVIP, vip)

	total := q.total.Round(2)
	span.SetAttributes(attribute.String("pricing.total", total.StringFixed(2)))
	return Quote{Base: base, Total: total, Steps: q.steps}
}

func (e *Engine) priorVisits(ctx context.Context, appt model.Appointment) int {
	if e.loyalty == nil {
		return 0
	}
	n, err := e.loyalty.PriorVisits(ctx, appt.CustomerName, appt.Start())
	if err != nil {
		e.logger.Warn("loyalty lookup failed, no discount applied", "appointment_id", appt.ID, "err", err)
		return 0
	}
	return n
}

func (e *Engine) overlapping(ctx context.Context, appt model.Appointment) int {
	if e.groups == nil {
		return 0
	}
	n, err := e.groups.OverlappingBookings(ctx, SlotOf(appt))
	if err != nil {
		e.logger.Warn("group booking lookup failed, no discount applied", "appointment_id", appt.ID, "err", err)
		return 0
	}
	return n
}

type pipeline struct {
	total decimal.Decimal
	steps []Step
}

func (p *pipeline) set(name string, v decimal.Decimal) {
	delta := v.Sub(p.total)
	p.total = v
	p.steps = append(p.steps, Step{Name: name, Delta: delta, Total: v})
}

func (p *pipeline) mul(name string, m decimal.Decimal) {
	p.set(name, p.total.Mul(m))
}

// add applies a flat amount and clamps the running total at zero.
func (p *pipeline) add(name string, v decimal.Decimal) {
	p.set(name, clampZero(p.total.Add(v)))
}

func (p *pipeline) barber(rule BarberRule) {
	next := p.total.Mul(decimal.NewFromInt(1).Add(rule.Percent)).Add(rule.Flat)
	p.set(StepBarber, clampZero(next))
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func discountMultiplier(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(rate)
}

// TierRate returns the rate of the highest tier whose Min is reached, or zero.
func TierRate(tiers []Tier, n int) decimal.Decimal {
	rate := decimal.Zero
	best := -1
	for _, t := range tiers {
		if n >= t.Min && t.Min > best {
			best = t.Min
			rate = t.Rate
		}
	}
	return rate
}

func ServiceCountMultiplier(premiums []Tier, services int) decimal.Decimal {
	return decimal.NewFromInt(1).Add(TierRate(premiums, services))
}

// ComboMultiplier discounts appointments that mix a haircut with a beard service.
func ComboMultiplier(p catalog.Provider, discount decimal.Decimal, styles []model.StyleReference) decimal.Decimal {
	var haircut, beard bool
	for _, s := range styles {
		haircut = haircut || catalog.IsHaircut(p, s)
		beard = beard || catalog.IsBeard(p, s)
	}
	if haircut && beard {
		return discountMultiplier(discount)
	}
	return decimal.NewFromInt(1)
}

func PaydayMultiplier(r Rules, date time.Time) decimal.Decimal {
	if r.PaydayDay > 0 && date.Day() == r.PaydayDay {
		return decimal.NewFromInt(1).Add(r.PaydaySurcharge)
	}
	return decimal.NewFromInt(1)
}

func SundayFee(r Rules, date time.Time) decimal.Decimal {
	if date.Weekday() == time.Sunday {
		return r.SundayFee
	}
	return decimal.Zero
}

// TimeBucketFor returns the bucket name for start, or "" when none applies.
func TimeBucketFor(r Rules, start model.Clock) string {
	b, ok := r.Bucket(start)
	if !ok {
		return ""
	}
	return b.Name
}

func TimeOfDayMultiplier(r Rules, start model.Clock) decimal.Decimal {
	b, ok := r.Bucket(start)
	if !ok {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(1).Add(b.Adjustment)
}

// DurationFee charges fee for every started step of duration beyond required.
func DurationFee(duration, required, step time.Duration, fee decimal.Decimal) decimal.Decimal {
	extra := duration - required
	if extra <= 0 || step <= 0 {
		return decimal.Zero
	}
	n := int64((extra + step - 1) / step)
	return fee.Mul(decimal.NewFromInt(n))
}

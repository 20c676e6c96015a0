package pricing

import (
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

// Tier applies Rate once a count reaches Min.
type Tier struct {
	Min  int
	Rate decimal.Decimal
}

// TimeBucket covers start times in [From, To).
type TimeBucket struct {
	Name       string
	From       model.Clock
	To         model.Clock
	Adjustment decimal.Decimal
}

func (b TimeBucket) Contains(c model.Clock) bool {
	return !c.Before(b.From) && c.Before(b.To)
}

// BarberRule is applied as total*(1+Percent) + Flat.
type BarberRule struct {
	Percent decimal.Decimal
	Flat    decimal.Decimal
}

type Rules struct {
	CountPremiums   []Tier
	ComboDiscount   decimal.Decimal
	PaydayDay       int
	PaydaySurcharge decimal.Decimal
	SundayFee       decimal.Decimal
	TimeBuckets     []TimeBucket
	Barbers         map[string]BarberRule
	DurationStep    time.Duration
	DurationStepFee decimal.Decimal
	LoyaltyTiers    []Tier
	GroupTiers      []Tier
	VIPMultiplier   decimal.Decimal
}

func pct(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

func DefaultRules() Rules {
	return Rules{
		CountPremiums:   []Tier{{Min: 2, Rate: pct(5)}, {Min: 3, Rate: pct(10)}},
		ComboDiscount:   pct(10),
		PaydayDay:       15,
		PaydaySurcharge: pct(25),
		SundayFee:       decimal.NewFromInt(20),
		TimeBuckets: []TimeBucket{
			{Name: "off-peak", From: model.NewClock(8, 0), To: model.NewClock(10, 0), Adjustment: pct(-20)},
			{Name: "happy-hour", From: model.NewClock(15, 0), To: model.NewClock(17, 0), Adjustment: pct(-15)},
			{Name: "peak", From: model.NewClock(17, 0), To: model.NewClock(20, 0), Adjustment: pct(30)},
		},
		Barbers: map[string]BarberRule{
			"gerrit": {Percent: pct(20)},
			"todd":   {Flat: decimal.NewFromInt(-5)},
		},
		DurationStep:    15 * time.Minute,
		DurationStepFee: decimal.New(250, -2),
		LoyaltyTiers:    []Tier{{Min: 5, Rate: pct(5)}, {Min: 10, Rate: pct(10)}, {Min: 20, Rate: pct(15)}},
		GroupTiers:      []Tier{{Min: 1, Rate: pct(10)}, {Min: 3, Rate: pct(15)}, {Min: 5, Rate: pct(20)}},
		VIPMultiplier:   decimal.New(15, -1),
	}
}

// Barber looks a barber up case-insensitively. Unknown or empty names are not an error.
func (r Rules) Barber(name string) (BarberRule, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return BarberRule{}, false
	}
	if rule, ok := r.Barbers[strings.ToLower(name)]; ok {
		return rule, true
	}
	for k, rule := range r.Barbers {
		if strings.EqualFold(k, name) {
			return rule, true
		}
	}
	return BarberRule{}, false
}

// Bucket returns the first bucket containing start.
func (r Rules) Bucket(start model.Clock) (TimeBucket, bool) {
	for _, b := range r.TimeBuckets {
		if b.Contains(start) {
			return b, true
		}
	}
	return TimeBucket{}, false
}

func sortTiers(tiers []Tier) []Tier {
	out := append([]Tier(nil), tiers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Min < out[j].Min })
	return out
}

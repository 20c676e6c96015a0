package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

// ParseRate accepts a fraction ("0.15") or a percentage ("15%").
func ParseRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if p, ok := strings.CutSuffix(s, "%"); ok {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid percentage %q", s)
		}
		return d.Shift(-2), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid rate %q", s)
	}
	return d, nil
}

// ParseTiers reads "5:5%,10:10%,20:15%".
func ParseTiers(s string) ([]Tier, error) {
	var out []Tier
	for _, part := range splitList(s) {
		minStr, rateStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("tier %q: expected min:rate", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(minStr))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("tier %q: invalid minimum", part)
		}
		rate, err := ParseRate(rateStr)
		if err != nil {
			return nil, fmt.Errorf("tier %q: %w", part, err)
		}
		out = append(out, Tier{Min: n, Rate: rate})
	}
	return sortTiers(out), nil
}

// ParseTimeBuckets reads "off-peak@08:00-10:00=-20%,peak@17:00-20:00=30%".
func ParseTimeBuckets(s string) ([]TimeBucket, error) {
	var out []TimeBucket
	for _, part := range splitList(s) {
		name, rest, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("time bucket %q: expected name@from-to=rate", part)
		}
		span, rateStr, ok := strings.Cut(rest, "=")
		if !ok {
			return nil, fmt.Errorf("time bucket %q: missing rate", part)
		}
		fromStr, toStr, ok := strings.Cut(span, "-")
		if !ok {
			return nil, fmt.Errorf("time bucket %q: expected from-to", part)
		}
		from, err := model.ParseClock(fromStr)
		if err != nil {
			return nil, fmt.Errorf("time bucket %q: %w", part, err)
		}
		to, err := model.ParseClock(toStr)
		if err != nil {
			return nil, fmt.Errorf("time bucket %q: %w", part, err)
		}
		if !from.Before(to) {
			return nil, fmt.Errorf("time bucket %q: empty range", part)
		}
		rate, err := ParseRate(rateStr)
		if err != nil {
			return nil, fmt.Errorf("time bucket %q: %w", part, err)
		}
		out = append(out, TimeBucket{Name: strings.TrimSpace(name), From: from, To: to, Adjustment: rate})
	}
	return out, nil
}

// ParseBarbers reads "gerrit=20%,todd=-5". A value with a % suffix is a
// percentage; anything else is a flat amount in EUR.
func ParseBarbers(s string) (map[string]BarberRule, error) {
	out := map[string]BarberRule{}
	for _, part := range splitList(s) {
		name, val, ok := strings.Cut(part, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" {
			return nil, fmt.Errorf("barber %q: expected name=adjustment", part)
		}
		val = strings.TrimSpace(val)
		var rule BarberRule
		if strings.HasSuffix(val, "%") {
			rate, err := ParseRate(val)
			if err != nil {
				return nil, fmt.Errorf("barber %q: %w", part, err)
			}
			rule.Percent = rate
		} else {
			flat, err := decimal.NewFromString(val)
			if err != nil {
				return nil, fmt.Errorf("barber %q: invalid amount", part)
			}
			rule.Flat = flat
		}
		out[name] = rule
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

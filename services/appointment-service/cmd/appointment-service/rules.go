package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/handlers"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/pricing"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/validation"
	"github.com/shopspring/decimal"
)

// rulesFromEnv overrides base with any PRICING_* variables that are set.
func rulesFromEnv(base pricing.Rules) (pricing.Rules, error) {
	rates := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"PRICING_COMBO_DISCOUNT", &base.ComboDiscount},
		{"PRICING_PAYDAY_SURCHARGE", &base.PaydaySurcharge},
		{"PRICING_VIP_MULTIPLIER", &base.VIPMultiplier},
	}
	for _, r := range rates {
		if raw := config.String(r.key, ""); raw != "" {
			v, err := pricing.ParseRate(raw)
			if err != nil {
				return base, fmt.Errorf("%s: %w", r.key, err)
			}
			*r.dst = v
		}
	}

	amounts := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"PRICING_SUNDAY_FEE", &base.SundayFee},
		{"PRICING_DURATION_STEP_FEE", &base.DurationStepFee},
	}
	for _, a := range amounts {
		if raw := config.String(a.key, ""); raw != "" {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return base, fmt.Errorf("%s: invalid amount %q", a.key, raw)
			}
			*a.dst = v
		}
	}

	var err error
	if base.PaydayDay, err = config.Int("PRICING_PAYDAY_DAY", base.PaydayDay); err != nil {
		return base, err
	}
	if base.DurationStep, err = config.Duration("PRICING_DURATION_STEP", base.DurationStep); err != nil {
		return base, err
	}

	if raw := config.String("PRICING_TIME_BUCKETS", ""); raw != "" {
		if base.TimeBuckets, err = pricing.ParseTimeBuckets(raw); err != nil {
			return base, fmt.Errorf("PRICING_TIME_BUCKETS: %w", err)
		}
	}
	if raw := config.String("PRICING_BARBERS", ""); raw != "" {
		if base.Barbers, err = pricing.ParseBarbers(raw); err != nil {
			return base, fmt.Errorf("PRICING_BARBERS: %w", err)
		}
	}
	tiers := []struct {
		key string
		dst *[]pricing.Tier
	}{
		{"PRICING_COUNT_PREMIUMS", &base.CountPremiums},
		{"PRICING_LOYALTY_TIERS", &base.LoyaltyTiers},
		{"PRICING_GROUP_TIERS", &base.GroupTiers},
	}
	for _, tr := range tiers {
		if raw := config.String(tr.key, ""); raw != "" {
			if *tr.dst, err = pricing.ParseTiers(raw); err != nil {
				return base, fmt.Errorf("%s: %w", tr.key, err)
			}
		}
	}
	return base, nil
}

// validationConfigFromEnv reads OPEN_DAYS ("Fri,Sat,Sun") and BARBER_HOURS
// ("gerrit=peak|happy-hour,todd=off-peak").
func validationConfigFromEnv() validation.Config {
	cfg := validation.DefaultConfig()
	if days := config.List("OPEN_DAYS", nil); len(days) > 0 {
		var parsed []time.Weekday
		for _, d := range days {
			if wd, ok := parseWeekday(d); ok {
				parsed = append(parsed, wd)
			}
		}
		if len(parsed) > 0 {
			cfg.OpenDays = parsed
		}
	}
	if entries := config.List("BARBER_HOURS", nil); len(entries) > 0 {
		cfg.BarberBuckets = map[string][]string{}
		for _, e := range entries {
			name, buckets, ok := strings.Cut(e, "=")
			if !ok {
				continue
			}
			cfg.BarberBuckets[strings.ToLower(strings.TrimSpace(name))] = strings.Split(buckets, "|")
		}
	}
	return cfg
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, true
		}
	}
	return 0, false
}

func availabilityConfigFromEnv() (handlers.AvailabilityConfig, error) {
	open, err := model.ParseClock(config.String("AVAILABILITY_OPEN", "08:00"))
	if err != nil {
		return handlers.AvailabilityConfig{}, fmt.Errorf("AVAILABILITY_OPEN: %w", err)
	}
	closeAt, err := model.ParseClock(config.String("AVAILABILITY_CLOSE", "20:00"))
	if err != nil {
		return handlers.AvailabilityConfig{}, fmt.Errorf("AVAILABILITY_CLOSE: %w", err)
	}
	if !open.Before(closeAt) {
		return handlers.AvailabilityConfig{}, fmt.Errorf("AVAILABILITY_OPEN %s must be before AVAILABILITY_CLOSE %s", open, closeAt)
	}
	step, err := config.Duration("AVAILABILITY_STEP", 15*time.Minute)
	if err != nil {
		return handlers.AvailabilityConfig{}, err
	}
	return handlers.AvailabilityConfig{
		Window: availability.Window{Open: open, Close: closeAt},
		Step:   step,
	}, nil
}

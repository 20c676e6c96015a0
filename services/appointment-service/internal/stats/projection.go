package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/barberbook/libs/db"
	"github.com/md-rashed-zaman/barberbook/libs/kafkax"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/outbox"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Topics the projection consumes.
var Topics = []string{
	outbox.TopicAppointmentCreated,
	outbox.TopicAppointmentImported,
	outbox.TopicAppointmentDeleted,
}

// Delta is the change one event makes to a day's counters.
type Delta struct {
	Day       time.Time
	Booked    int
	Imported  int
	Cancelled int
	Revenue   decimal.Decimal
}

// DeltaFor maps an appointment event to counter changes. ok is false for
// topics the projection does not count.
func DeltaFor(topic string, payload []byte) (d Delta, ok bool, err error) {
	var p outbox.AppointmentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Delta{}, false, fmt.Errorf("decode %s: %w", topic, err)
	}
	if p.StartsAt.IsZero() {
		return Delta{}, false, fmt.Errorf("%s: missing starts_at", topic)
	}
	d = Delta{Day: model.DateOf(p.StartsAt.UTC()), Revenue: decimal.Zero}

	switch topic {
	case outbox.TopicAppointmentCreated:
		d.Booked = 1
		if p.Price != "" {
			price, err := decimal.NewFromString(p.Price)
			if err != nil {
				return Delta{}, false, fmt.Errorf("%s: invalid price %q", topic, p.Price)
			}
			d.Revenue = price
		}
	case outbox.TopicAppointmentImported:
		d.Imported = 1
	case outbox.TopicAppointmentDeleted:
		d.Cancelled = 1
	default:
		return Delta{}, false, nil
	}
	return d, true, nil
}

type Counts struct {
	Day       string          `json:"day"`
	Booked    int             `json:"booked"`
	Imported  int             `json:"imported"`
	Cancelled int             `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Projection keeps daily_booking_stats in step with appointment events.
type Projection struct {
	pool   *db.Pool
	logger *slog.Logger
}

func NewProjection(pool *db.Pool, logger *slog.Logger) *Projection {
	return &Projection{pool: pool, logger: logger}
}

// Handle applies msg once. Redelivered events are skipped through inbox_events;
// undecodable payloads are logged and dropped.
func (p *Projection) Handle(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
	d, ok, err := DeltaFor(msg.Topic, msg.Value)
	if err != nil {
		p.logger.Error("invalid appointment event", "err", err, "event_id", meta.EventID)
		return nil
	}
	if !ok {
		return nil
	}

	return p.pool.InTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO inbox_events (event_id, event_type)
			VALUES ($1, $2)
			ON CONFLICT (event_id) DO NOTHING
		`, meta.EventID, meta.EventType)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			p.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO daily_booking_stats (day, booked, imported, cancelled, revenue)
			VALUES ($1::date, $2, $3, $4, $5::numeric)
			ON CONFLICT (day)
			DO UPDATE SET booked = daily_booking_stats.booked + EXCLUDED.booked,
			              imported = daily_booking_stats.imported + EXCLUDED.imported,
			              cancelled = daily_booking_stats.cancelled + EXCLUDED.cancelled,
			              revenue = daily_booking_stats.revenue + EXCLUDED.revenue,
			              updated_at = now()
		`, d.Day, d.Booked, d.Imported, d.Cancelled, d.Revenue.StringFixed(2))
		return err
	})
}

// Daily returns the counters for day; a day without events has zero counts.
func (p *Projection) Daily(ctx context.Context, day time.Time) (Counts, error) {
	day = model.DateOf(day)
	c := Counts{Day: day.Format("2006-01-02"), Revenue: decimal.Zero}
	var revenue string
	err := p.pool.QueryRow(ctx, `
		SELECT booked, imported, cancelled, revenue::text
		FROM daily_booking_stats
		WHERE day = $1::date
	`, day).Scan(&c.Booked, &c.Imported, &c.Cancelled, &revenue)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return Counts{}, err
	}
	if c.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return Counts{}, fmt.Errorf("stored revenue %q: %w", revenue, err)
	}
	return c, nil
}

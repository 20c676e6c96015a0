package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/barberbook/libs/db"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/pricing"
)

var ErrNotFound = errors.New("appointment not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Source records where an appointment came from.
type Source string

const (
	SourceAPI    Source = "api"
	SourceLegacy Source = "legacy"
)

type ListFilter struct {
	Date   *time.Time
	Barber string
	Limit  int
}

func (r *Repository) Create(ctx context.Context, tx pgx.Tx, appt model.Appointment, source Source) error {
	start := appt.Start().UTC()
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, starts_at, ends_at, duration_minutes, customer_name, barber_name, beverage_choice, is_vip, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, appt.ID, start, start.Add(appt.Duration), int(appt.Duration/time.Minute), appt.CustomerName,
		appt.BarberName, appt.BeverageChoice, appt.IsVIP, string(source))
	if err != nil {
		return err
	}
	return insertServices(ctx, tx, appt)
}

func insertServices(ctx context.Context, tx pgx.Tx, appt model.Appointment) error {
	for i, s := range appt.Services {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_services (id, appointment_id, position, name, style)
			VALUES ($1, $2, $3, $4, $5)
		`, s.ID, appt.ID, i, s.Name, s.Style.String())
		if err != nil {
			return fmt.Errorf("insert service %d: %w", i, err)
		}
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, appt model.Appointment) error {
	start := appt.Start().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET starts_at = $2,
			ends_at = $3,
			duration_minutes = $4,
			customer_name = $5,
			barber_name = $6,
			beverage_choice = $7,
			is_vip = $8,
			updated_at = now()
		WHERE id = $1
	`, appt.ID, start, start.Add(appt.Duration), int(appt.Duration/time.Minute), appt.CustomerName,
		appt.BarberName, appt.BeverageChoice, appt.IsVIP)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM appointment_services WHERE appointment_id = $1`, appt.ID); err != nil {
		return err
	}
	return insertServices(ctx, tx, appt)
}

func (r *Repository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const selectAppointment = `
	SELECT id::text, starts_at, duration_minutes, customer_name, barber_name, beverage_choice, is_vip
	FROM appointments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	var startsAt time.Time
	var minutes int
	if err := row.Scan(&appt.ID, &startsAt, &minutes, &appt.CustomerName, &appt.BarberName, &appt.BeverageChoice, &appt.IsVIP); err != nil {
		return model.Appointment{}, err
	}
	startsAt = startsAt.UTC()
	appt.Date = model.DateOf(startsAt)
	appt.StartTime = model.NewClock(startsAt.Hour(), startsAt.Minute())
	appt.Duration = time.Duration(minutes) * time.Minute
	return appt, nil
}

func (r *Repository) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, selectAppointment+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, err
	}
	services, err := r.services(ctx, []string{appt.ID})
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Services = services[appt.ID]
	return appt, nil
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var (
		where []string
		args  []any
	)
	if f.Date != nil {
		day := model.DateOf(*f.Date)
		args = append(args, day, day.AddDate(0, 0, 1))
		where = append(where, fmt.Sprintf("starts_at >= $%d AND starts_at < $%d", len(args)-1, len(args)))
	}
	if b := strings.TrimSpace(f.Barber); b != "" {
		args = append(args, b)
		where = append(where, fmt.Sprintf("lower(barber_name) = lower($%d)", len(args)))
	}
	query := selectAppointment
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY starts_at, id LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	var ids []string
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
		ids = append(ids, appt.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	services, err := r.services(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Services = services[out[i].ID]
	}
	return out, nil
}

func (r *Repository) services(ctx context.Context, ids []string) (map[string][]model.AppointmentService, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, appointment_id::text, name, style
		FROM appointment_services
		WHERE appointment_id::text = ANY($1)
		ORDER BY appointment_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]model.AppointmentService{}
	for rows.Next() {
		var s model.AppointmentService
		var style string
		if err := rows.Scan(&s.ID, &s.AppointmentID, &s.Name, &style); err != nil {
			return nil, err
		}
		ref, ok := model.ParseStyleReference(style)
		if !ok {
			return nil, fmt.Errorf("appointment %s: unknown stored style %q", s.AppointmentID, style)
		}
		s.Style = ref
		out[s.AppointmentID] = append(out[s.AppointmentID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BarberBusy reports whether the appointment's barber already has another
// booking overlapping its slot. Appointments without a barber never clash.
func (r *Repository) BarberBusy(ctx context.Context, tx pgx.Tx, appt model.Appointment) (bool, error) {
	if strings.TrimSpace(appt.BarberName) == "" {
		return false, nil
	}
	start := appt.Start().UTC()
	var busy bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE lower(barber_name) = lower($1)
			  AND starts_at < $3 AND ends_at > $2
			  AND id::text <> $4
		)
	`, appt.BarberName, start, start.Add(appt.Duration), appt.ID).Scan(&busy)
	return busy, err
}

// PriorVisits counts a customer's appointments starting before the given time.
func (r *Repository) PriorVisits(ctx context.Context, customer string, before time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE lower(customer_name) = lower($1) AND starts_at < $2
	`, strings.TrimSpace(customer), before.UTC()).Scan(&n)
	return n, err
}

// OverlappingBookings counts other appointments whose interval intersects the slot.
func (r *Repository) OverlappingBookings(ctx context.Context, slot pricing.Slot) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE starts_at < $2 AND ends_at > $1 AND id::text <> $3
	`, slot.StartAt().UTC(), slot.EndAt().UTC(), slot.ExcludeID).Scan(&n)
	return n, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsInvalidInput reports malformed values rejected by postgres, such as a non-uuid id.
func IsInvalidInput(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}

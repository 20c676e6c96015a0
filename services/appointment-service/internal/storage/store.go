package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/barberbook/libs/db"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/outbox"
)

// Tx is the write side of one database transaction.
type Tx interface {
	Create(ctx context.Context, appt model.Appointment, source Source) error
	Update(ctx context.Context, appt model.Appointment) error
	Delete(ctx context.Context, id string) error
	BarberBusy(ctx context.Context, appt model.Appointment) (bool, error)
	Emit(ctx context.Context, evt outbox.Event) error
}

// Store pairs appointment reads with transactional writes that also fill the outbox.
type Store struct {
	pool   *db.Pool
	repo   *Repository
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, repo: repo, outbox: outboxRepo}
}

func (s *Store) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Store) List(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	return s.repo.List(ctx, f)
}

func (s *Store) InTx(ctx context.Context, fn func(Tx) error) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, repo: s.repo, outbox: s.outbox})
	})
}

type pgTx struct {
	tx     pgx.Tx
	repo   *Repository
	outbox *outbox.Repository
}

func (t *pgTx) Create(ctx context.Context, appt model.Appointment, source Source) error {
	return t.repo.Create(ctx, t.tx, appt, source)
}

func (t *pgTx) Update(ctx context.Context, appt model.Appointment) error {
	return t.repo.Update(ctx, t.tx, appt)
}

func (t *pgTx) Delete(ctx context.Context, id string) error {
	return t.repo.Delete(ctx, t.tx, id)
}

func (t *pgTx) BarberBusy(ctx context.Context, appt model.Appointment) (bool, error) {
	return t.repo.BarberBusy(ctx, t.tx, appt)
}

func (t *pgTx) Emit(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

// TxRunner is implemented by Store.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// SaveImported stores imported appointments and their events in a single transaction.
func SaveImported(ctx context.Context, s TxRunner, appts []model.Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	return s.InTx(ctx, func(tx Tx) error {
		for _, appt := range appts {
			if err := tx.Create(ctx, appt, SourceLegacy); err != nil {
				return fmt.Errorf("store %s: %w", appt.ID, err)
			}
			evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentImported, appt, "")
			if err != nil {
				return err
			}
			if err := tx.Emit(ctx, evt); err != nil {
				return fmt.Errorf("outbox %s: %w", appt.ID, err)
			}
		}
		return nil
	})
}

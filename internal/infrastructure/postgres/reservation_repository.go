package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

type reservationRow struct {
	ID               string     `db:"id"`
	SlotID           string     `db:"slot_id"`
	CitizenID        string     `db:"citizen_id"`
	Status           string     `db:"status"`
	IdempotencyKey   string     `db:"idempotency_key"`
	BookingReference string     `db:"booking_reference"`
	CancelledBy      *string    `db:"cancelled_by"`
	ConfirmedAt      *time.Time `db:"confirmed_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

const reservationColumns = `id, slot_id, citizen_id, status, idempotency_key, booking_reference, cancelled_by, confirmed_at, created_at, updated_at`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	t, err := mustTx(tx)
	if err != nil {
		return err
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	query := t.Rebind(`INSERT INTO reservations (` + reservationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = t.ExecContext(ctx, query,
		res.ID, res.SlotID, res.CitizenID, string(res.Status), res.IdempotencyKey, res.BookingReference,
		res.CancelledBy, utcPtr(res.ConfirmedAt), res.CreatedAt.UTC(), res.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolationOn(err, "booking_reference") {
			return reservation.ErrReferenceTaken
		}
		if _, ok := uniqueViolation(err); ok {
			return reservation.ErrDuplicateReservation
		}
		return storeErr("予約作成に失敗", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	return r.getOne(ctx, nil, `id = ?`, id)
}

func (r *ReservationRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	return r.getOne(ctx, tx, `id = ?`, id)
}

func (r *ReservationRepository) GetByReference(ctx context.Context, ref string) (*reservation.Reservation, error) {
	return r.getOne(ctx, nil, `booking_reference = ?`, ref)
}

func (r *ReservationRepository) ReferenceExists(ctx context.Context, tx transaction.Tx, ref string) (bool, error) {
	q := runner(r.db, tx)
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM reservations WHERE booking_reference = ?`), ref); err != nil {
		return false, storeErr("受付番号の確認に失敗", err)
	}
	return n > 0, nil
}

func (r *ReservationRepository) FindActive(ctx context.Context, tx transaction.Tx, slotID, citizenID string) (*reservation.Reservation, error) {
	return r.getOne(ctx, tx, `slot_id = ? AND citizen_id = ? AND status IN ('pending', 'confirmed')`, slotID, citizenID)
}

func (r *ReservationRepository) ListByCitizen(ctx context.Context, citizenID string, limit, offset int) ([]*reservation.Reservation, error) {
	return r.list(ctx, `citizen_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, citizenID, limit, offset)
}

func (r *ReservationRepository) ListBySlot(ctx context.Context, slotID string) ([]*reservation.Reservation, error) {
	return r.list(ctx, `slot_id = ? ORDER BY created_at, id`, slotID)
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, res *reservation.Reservation, from reservation.Status) error {
	t, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := t.Rebind(`UPDATE reservations SET status = ?, cancelled_by = ?, confirmed_at = ?, updated_at = ? WHERE id = ? AND status = ?`)
	result, err := t.ExecContext(ctx, query,
		string(res.Status), res.CancelledBy, utcPtr(res.ConfirmedAt), res.UpdatedAt.UTC(), res.ID, string(from))
	if err != nil {
		return storeErr("予約更新に失敗", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return reservation.ErrInvalidTransition
	}
	return nil
}

func (r *ReservationRepository) getOne(ctx context.Context, tx transaction.Tx, where string, args ...any) (*reservation.Reservation, error) {
	q := runner(r.db, tx)
	var row reservationRow
	query := q.Rebind(`SELECT ` + reservationColumns + ` FROM reservations WHERE ` + where)
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		return nil, lookupErr(tx, err, reservation.ErrReservationNotFound, "予約取得に失敗")
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) list(ctx context.Context, where string, args ...any) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := r.db.Rebind(`SELECT ` + reservationColumns + ` FROM reservations WHERE ` + where)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isInvalidInput(err) {
			return []*reservation.Reservation{}, nil
		}
		return nil, storeErr("予約一覧取得に失敗", err)
	}
	out := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (row *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: row.ID, SlotID: row.SlotID, CitizenID: row.CitizenID,
		Status: reservation.Status(row.Status), IdempotencyKey: row.IdempotencyKey,
		BookingReference: row.BookingReference, CancelledBy: row.CancelledBy,
		ConfirmedAt: row.ConfirmedAt, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ reservation.Repository = (*ReservationRepository)(nil)

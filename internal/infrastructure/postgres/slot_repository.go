package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

type slotRow struct {
	ID          string    `db:"id"`
	ServiceID   string    `db:"service_id"`
	StartAt     time.Time `db:"start_at"`
	EndAt       time.Time `db:"end_at"`
	Capacity    int       `db:"capacity"`
	Occupancy   int       `db:"occupancy"`
	IsAvailable bool      `db:"is_available"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const slotColumns = `id, service_id, start_at, end_at, capacity, occupancy, is_available, created_at, updated_at`

// bulkInsertBatch は一括挿入1文あたりの行数
const bulkInsertBatch = 500

type SlotRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db, now: time.Now}
}

func (r *SlotRepository) Create(ctx context.Context, s *slot.TimeSlot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := r.db.Rebind(`INSERT INTO time_slots (` + slotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, slotArgs(s)...); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return slot.ErrSlotAlreadyExists
		}
		return storeErr("時間枠作成に失敗", err)
	}
	return nil
}

func (r *SlotRepository) CreateBulk(ctx context.Context, slots []*slot.TimeSlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, storeErr("トランザクション開始に失敗", err)
	}
	defer tx.Rollback()

	created := 0
	for start := 0; start < len(slots); start += bulkInsertBatch {
		end := min(start+bulkInsertBatch, len(slots))
		batch := slots[start:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*9)
		for i, s := range batch {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, slotArgs(s)...)
		}
		query := `INSERT INTO time_slots (` + slotColumns + `) VALUES ` + strings.Join(placeholders, ", ") +
			` ON CONFLICT (service_id, start_at) DO NOTHING`
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return 0, storeErr("時間枠の一括作成に失敗", err)
		}
		n, _ := res.RowsAffected()
		created += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("コミットに失敗", err)
	}
	return created, nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id string) (*slot.TimeSlot, error) {
	var row slotRow
	query := r.db.Rebind(`SELECT ` + slotColumns + ` FROM time_slots WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, slot.ErrSlotNotFound, "時間枠取得に失敗")
	}
	return row.toEntity(), nil
}

// GetForUpdate は Postgres では行ロックを取る
// SQLite は接続が1本なのでトランザクション自体が直列化される
func (r *SlotRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*slot.TimeSlot, error) {
	t, err := mustTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = ?`
	if isPostgres(r.db) {
		query += ` FOR UPDATE`
	}
	var row slotRow
	if err := t.GetContext(ctx, &row, t.Rebind(query), id); err != nil {
		return nil, lookupErr(tx, err, slot.ErrSlotNotFound, "時間枠のロックに失敗")
	}
	return row.toEntity(), nil
}

func (r *SlotRepository) ListByService(ctx context.Context, serviceID string, from, to time.Time) ([]*slot.TimeSlot, error) {
	var rows []slotRow
	query := r.db.Rebind(`SELECT ` + slotColumns + ` FROM time_slots WHERE service_id = ? AND start_at >= ? AND start_at < ? ORDER BY start_at`)
	if err := r.db.SelectContext(ctx, &rows, query, serviceID, from.UTC(), to.UTC()); err != nil {
		if isInvalidInput(err) {
			return []*slot.TimeSlot{}, nil
		}
		return nil, storeErr("時間枠一覧取得に失敗", err)
	}
	out := make([]*slot.TimeSlot, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (r *SlotRepository) CountRemaining(ctx context.Context, serviceID string, from, to time.Time) (int, error) {
	var remaining int
	query := r.db.Rebind(`SELECT COALESCE(SUM(capacity - occupancy), 0) FROM time_slots
		WHERE service_id = ? AND start_at >= ? AND start_at < ? AND is_available = ?`)
	if err := r.db.GetContext(ctx, &remaining, query, serviceID, from.UTC(), to.UTC(), true); err != nil {
		if isInvalidInput(err) {
			return 0, nil
		}
		return 0, storeErr("残数集計に失敗", err)
	}
	return remaining, nil
}

func (r *SlotRepository) IncrementOccupancy(ctx context.Context, tx transaction.Tx, id string) error {
	t, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := t.Rebind(`UPDATE time_slots SET occupancy = occupancy + 1, updated_at = ? WHERE id = ? AND occupancy < capacity`)
	res, err := t.ExecContext(ctx, query, r.now().UTC(), id)
	if err != nil {
		return storeErr("予約数の加算に失敗", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return slot.ErrCapacityExceeded
	}
	return nil
}

func (r *SlotRepository) DecrementOccupancy(ctx context.Context, tx transaction.Tx, id string) error {
	t, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := t.Rebind(`UPDATE time_slots SET occupancy = occupancy - 1, updated_at = ? WHERE id = ? AND occupancy > 0`)
	res, err := t.ExecContext(ctx, query, r.now().UTC(), id)
	if err != nil {
		return storeErr("予約数の減算に失敗", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return slot.ErrOccupancyUnderflow
	}
	return nil
}

func (r *SlotRepository) Deactivate(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE time_slots SET is_available = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, false, r.now().UTC(), id)
	if err != nil {
		return notFoundOr(err, slot.ErrSlotNotFound, "時間枠の受付停止に失敗")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return slot.ErrSlotNotFound
	}
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM time_slots WHERE id = ? AND NOT EXISTS (SELECT 1 FROM reservations WHERE slot_id = ?)`)
	res, err := r.db.ExecContext(ctx, query, id, id)
	if err != nil {
		return notFoundOr(err, slot.ErrSlotNotFound, "時間枠削除に失敗")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return slot.ErrSlotReferenced
}

func slotArgs(s *slot.TimeSlot) []any {
	return []any{s.ID, s.ServiceID, s.StartAt.UTC(), s.EndAt.UTC(), s.Capacity, s.Occupancy, s.IsAvailable, s.CreatedAt.UTC(), s.UpdatedAt.UTC()}
}

func (row *slotRow) toEntity() *slot.TimeSlot {
	return &slot.TimeSlot{
		ID: row.ID, ServiceID: row.ServiceID,
		StartAt: row.StartAt.UTC(), EndAt: row.EndAt.UTC(),
		Capacity: row.Capacity, Occupancy: row.Occupancy, IsAvailable: row.IsAvailable,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

var _ slot.Repository = (*SlotRepository)(nil)

package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/ledger"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
)

type ledgerRow struct {
	CitizenID      string    `db:"citizen_id"`
	SlotID         string    `db:"slot_id"`
	IdempotencyKey string    `db:"idempotency_key"`
	Outcome        string    `db:"outcome"`
	ReservationID  *string   `db:"reservation_id"`
	CreatedAt      time.Time `db:"created_at"`
}

type LedgerRepository struct{ db *sqlx.DB }

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Lookup(ctx context.Context, tx transaction.Tx, key ledger.Key) (*ledger.Entry, error) {
	q := runner(r.db, tx)
	var row ledgerRow
	query := q.Rebind(`SELECT citizen_id, slot_id, idempotency_key, outcome, reservation_id, created_at
		FROM reservation_ledger WHERE citizen_id = ? AND slot_id = ? AND idempotency_key = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, key.CitizenID, key.SlotID, key.IdempotencyKey); err != nil {
		return nil, lookupErr(tx, err, ledger.ErrEntryNotFound, "台帳参照に失敗")
	}
	return &ledger.Entry{
		Key:           ledger.Key{CitizenID: row.CitizenID, SlotID: row.SlotID, IdempotencyKey: row.IdempotencyKey},
		Outcome:       ledger.Outcome(row.Outcome),
		ReservationID: row.ReservationID,
		CreatedAt:     row.CreatedAt,
	}, nil
}

// RecordOutcome は挿入が競合した場合に既存行と突き合わせる
func (r *LedgerRepository) RecordOutcome(ctx context.Context, tx transaction.Tx, e *ledger.Entry) error {
	t, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := t.Rebind(`INSERT INTO reservation_ledger (citizen_id, slot_id, idempotency_key, outcome, reservation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (citizen_id, slot_id, idempotency_key) DO NOTHING`)
	res, err := t.ExecContext(ctx, query, e.CitizenID, e.SlotID, e.IdempotencyKey, string(e.Outcome), e.ReservationID, e.CreatedAt.UTC())
	if err != nil {
		return storeErr("台帳記録に失敗", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	existing, err := r.Lookup(ctx, tx, e.Key)
	if err != nil {
		return err
	}
	if existing.SameOutcome(e) {
		return nil
	}
	logger.Error("冪等性台帳に異なる結果を記録しようとしました",
		zap.String("citizen_id", e.CitizenID),
		zap.String("slot_id", e.SlotID),
		zap.String("idempotency_key", e.IdempotencyKey),
		zap.String("existing", string(existing.Outcome)),
		zap.String("attempted", string(e.Outcome)),
	)
	return ledger.ErrDuplicateKey
}

var _ ledger.Repository = (*LedgerRepository)(nil)

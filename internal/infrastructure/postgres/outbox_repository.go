package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

type outboxRow struct {
	ID                string     `db:"id"`
	Kind              string     `db:"kind"`
	Recipient         string     `db:"recipient"`
	Payload           string     `db:"payload"`
	Status            string     `db:"status"`
	Attempts          int        `db:"attempts"`
	LastError         *string    `db:"last_error"`
	ProviderMessageID *string    `db:"provider_message_id"`
	NextAttemptAt     time.Time  `db:"next_attempt_at"`
	CreatedAt         time.Time  `db:"created_at"`
	DeliveredAt       *time.Time `db:"delivered_at"`
}

const outboxColumns = `id, kind, recipient, payload, status, attempts, last_error, provider_message_id, next_attempt_at, created_at, delivered_at`

type OutboxRepository struct{ db *sqlx.DB }

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, tx transaction.Tx, m *notification.OutboxMessage) error {
	t, err := mustTx(tx)
	if err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := t.Rebind(`INSERT INTO notification_outbox (` + outboxColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = t.ExecContext(ctx, query,
		m.ID, string(m.Kind), m.Recipient, m.Payload, string(m.Status), m.Attempts, m.LastError,
		m.ProviderMessageID, m.NextAttemptAt.UTC(), m.CreatedAt.UTC(), utcPtr(m.DeliveredAt))
	if err != nil {
		return storeErr("通知の登録に失敗", err)
	}
	return nil
}

func (r *OutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*notification.OutboxMessage, error) {
	query := `SELECT ` + outboxColumns + ` FROM notification_outbox
		WHERE status = ? AND next_attempt_at <= ? ORDER BY next_attempt_at, created_at LIMIT ?`
	return r.selectMessages(ctx, query, string(notification.OutboxPending), now.UTC(), limit)
}

func (r *OutboxRepository) Save(ctx context.Context, m *notification.OutboxMessage) error {
	query := r.db.Rebind(`UPDATE notification_outbox SET status = ?, attempts = ?, last_error = ?,
		provider_message_id = ?, next_attempt_at = ?, delivered_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		string(m.Status), m.Attempts, m.LastError, m.ProviderMessageID, m.NextAttemptAt.UTC(), utcPtr(m.DeliveredAt), m.ID)
	if err != nil {
		return storeErr("通知の更新に失敗", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notification.ErrMessageNotFound
	}
	return nil
}

func (r *OutboxRepository) List(ctx context.Context, status notification.OutboxStatus, limit, offset int) ([]*notification.OutboxMessage, error) {
	if status == "" {
		return r.selectMessages(ctx, `SELECT `+outboxColumns+` FROM notification_outbox
			ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	}
	return r.selectMessages(ctx, `SELECT `+outboxColumns+` FROM notification_outbox
		WHERE status = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, string(status), limit, offset)
}

func (r *OutboxRepository) selectMessages(ctx context.Context, query string, args ...any) ([]*notification.OutboxMessage, error) {
	var rows []outboxRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, storeErr("通知一覧取得に失敗", err)
	}
	out := make([]*notification.OutboxMessage, len(rows))
	for i, row := range rows {
		out[i] = &notification.OutboxMessage{
			ID: row.ID, Kind: notification.Kind(row.Kind), Recipient: row.Recipient, Payload: row.Payload,
			Status: notification.OutboxStatus(row.Status), Attempts: row.Attempts, LastError: row.LastError,
			ProviderMessageID: row.ProviderMessageID, NextAttemptAt: row.NextAttemptAt,
			CreatedAt: row.CreatedAt, DeliveredAt: row.DeliveredAt,
		}
	}
	return out, nil
}

var _ notification.OutboxRepository = (*OutboxRepository)(nil)

package slot

import (
	"context"
	"time"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// Repository は時間枠リポジトリのインターフェース
type Repository interface {
	Create(ctx context.Context, s *TimeSlot) error

	// CreateBulk は (service_id, start_at) が既存の枠を飛ばして挿入し、作成件数を返す
	CreateBulk(ctx context.Context, slots []*TimeSlot) (int, error)

	GetByID(ctx context.Context, id string) (*TimeSlot, error)

	// GetForUpdate はトランザクション内で枠を行ロックして取得する
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*TimeSlot, error)

	// ListByService は [from, to) に開始する枠を開始時刻順に返す
	ListByService(ctx context.Context, serviceID string, from, to time.Time) ([]*TimeSlot, error)

	// CountRemaining は受付中の枠の残数合計を返す
	CountRemaining(ctx context.Context, serviceID string, from, to time.Time) (int, error)

	// IncrementOccupancy は定員未満のときだけ予約数を1増やす（満員なら ErrCapacityExceeded）
	IncrementOccupancy(ctx context.Context, tx transaction.Tx, id string) error

	// DecrementOccupancy は予約数を1減らす（0なら ErrOccupancyUnderflow）
	DecrementOccupancy(ctx context.Context, tx transaction.Tx, id string) error

	Deactivate(ctx context.Context, id string) error

	// Delete は予約が1件も紐づかない枠だけを削除する
	Delete(ctx context.Context, id string) error
}

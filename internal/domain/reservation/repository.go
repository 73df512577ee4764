package reservation

import (
	"context"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は予約を挿入する
	// 同じ枠に有効な予約があれば ErrDuplicateReservation、受付番号衝突は ErrReferenceTaken
	Create(ctx context.Context, tx transaction.Tx, r *Reservation) error

	GetByID(ctx context.Context, id string) (*Reservation, error)
	GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)
	GetByReference(ctx context.Context, ref string) (*Reservation, error)

	ReferenceExists(ctx context.Context, tx transaction.Tx, ref string) (bool, error)

	// FindActive は住民がその枠に持つ有効な予約を返す（なければ ErrReservationNotFound）
	FindActive(ctx context.Context, tx transaction.Tx, slotID, citizenID string) (*Reservation, error)

	ListByCitizen(ctx context.Context, citizenID string, limit, offset int) ([]*Reservation, error)
	ListBySlot(ctx context.Context, slotID string) ([]*Reservation, error)

	// UpdateStatus は状態が from のままの場合だけ更新する（競合時 ErrInvalidTransition）
	UpdateStatus(ctx context.Context, tx transaction.Tx, r *Reservation, from Status) error
}

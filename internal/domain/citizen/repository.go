package citizen

import (
	"context"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// Repository は住民リポジトリのインターフェース
type Repository interface {
	Create(ctx context.Context, c *Citizen) error
	GetByID(ctx context.Context, id string) (*Citizen, error)
	// GetByIDTx は予約トランザクション内で住民を取得する
	GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*Citizen, error)
}

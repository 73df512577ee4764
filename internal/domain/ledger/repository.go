package ledger

import (
	"context"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// Repository は冪等性台帳のインターフェース
type Repository interface {
	// Lookup はキーの記録を返す。tx が nil ならトランザクション外で読む
	Lookup(ctx context.Context, tx transaction.Tx, key Key) (*Entry, error)

	// RecordOutcome は未記録なら挿入する
	// 既存と同じ結果なら成功、異なれば ErrDuplicateKey
	RecordOutcome(ctx context.Context, tx transaction.Tx, e *Entry) error
}

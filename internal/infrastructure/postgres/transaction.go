package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// TxWrapper は sqlx.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	*sqlx.Tx
}

func (t *TxWrapper) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		return storeErr("コミットに失敗", err)
	}
	return nil
}

func (t *TxWrapper) Rollback() error {
	return t.Tx.Rollback()
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storeErr("トランザクション開始に失敗", err)
	}
	return &TxWrapper{Tx: tx}, nil
}

// UnwrapTx は transaction.Tx から sqlx.Tx を取り出す
func UnwrapTx(tx transaction.Tx) *sqlx.Tx {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.Tx
	}
	return nil
}

// runner はトランザクションがあればそれを、なければDBを返す
func runner(db *sqlx.DB, tx transaction.Tx) sqlx.ExtContext {
	if tx == nil {
		return db
	}
	if t := UnwrapTx(tx); t != nil {
		return t
	}
	return db
}

// mustTx はトランザクション必須の操作で使う
func mustTx(tx transaction.Tx) (*sqlx.Tx, error) {
	t := UnwrapTx(tx)
	if t == nil {
		return nil, fmt.Errorf("トランザクションが必要です")
	}
	return t, nil
}

var _ transaction.Manager = (*TxManager)(nil)

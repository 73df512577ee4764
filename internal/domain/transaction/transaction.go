package transaction

import (
	"context"
	"errors"
)

// ErrStoreUnavailable はデータストアに到達できないことを表す
// リポジトリはドライバーエラーをこのエラーでラップして返す
var ErrStoreUnavailable = errors.New("データストアが利用できません")

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}

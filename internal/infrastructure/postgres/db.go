package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/config"
)

// NewConnection は PostgreSQL に接続してプールを設定する
// 接続できない場合は ErrStoreUnavailable をラップして返す
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, storeErr(fmt.Sprintf("%s:%s への接続に失敗", cfg.Host, cfg.Port), err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if cfg.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLife)
	}
	return db, nil
}

// isPostgres は行ロック構文を使えるかを返す
func isPostgres(db *sqlx.DB) bool {
	return db.DriverName() == "postgres"
}

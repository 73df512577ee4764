// Package sqlite は開発用とテスト用の組込みストアを提供する
// リポジトリは postgres パッケージのものをそのまま使う
package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// DriverName は database/sql に登録されたドライバー名
const DriverName = "sqlite"

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

// Open はファイルに永続化するストアを開いてスキーマを適用する
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	return open(ctx, "file:"+path+"?"+pragmas+"&_pragma=journal_mode(WAL)")
}

// NewInMemory はプロセス内だけで完結するストアを作成する
func NewInMemory(ctx context.Context) (*sqlx.DB, error) {
	return open(ctx, "file::memory:?"+pragmas)
}

func open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("SQLite接続に失敗しました: %w", err)
	}
	// 書き込みは直列化される。接続を1本に固定してインメモリDBを保持する
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ApplySchema は埋め込みスキーマを冪等に適用する
func ApplySchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range statements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("スキーマ適用に失敗: %w", err)
		}
	}
	return nil
}

func statements(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// ErrMalformedID はトランザクション内で列の型に合わないIDを渡したことを表す
var ErrMalformedID = errors.New("IDの形式が不正です")

const (
	pqUniqueViolation  = "23505"
	pqInvalidTextInput = "22P02"
)

// sqliteCoder は modernc.org/sqlite のエラーが満たす
type sqliteCoder interface {
	Code() int
}

// storeErr はドライバーエラーをストア障害としてラップする
// 呼び出し側のキャンセルはそのまま返す
func storeErr(msg string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, transaction.ErrStoreUnavailable, err)
}

// notFoundOr は行なしと不正なID形式を notFound に、それ以外をストア障害にする
// トランザクション外の単発参照で使う
func notFoundOr(err, notFound error, msg string) error {
	return lookupErr(nil, err, notFound, msg)
}

// lookupErr は notFoundOr のトランザクション対応版
// Postgres は不正なID形式でトランザクションを中断するため、tx 内では notFound にせず
// 再試行しても解決しない内部エラーとして返す
func lookupErr(tx transaction.Tx, err, notFound error, msg string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case isInvalidInput(err) && tx == nil:
		return notFound
	case isInvalidInput(err):
		return fmt.Errorf("%s: %w: %w", msg, ErrMalformedID, err)
	}
	return storeErr(msg, err)
}

// uniqueViolation は一意制約違反であれば制約の説明を返す
// Postgres は制約名、SQLite はエラーメッセージ（テーブル名.列名を含む）
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == pqUniqueViolation {
			return pqErr.Constraint, true
		}
		return "", false
	}
	var le sqliteCoder
	if errors.As(err, &le) && le.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") {
			return msg, true
		}
	}
	return "", false
}

func isUniqueViolationOn(err error, column string) bool {
	detail, ok := uniqueViolation(err)
	return ok && strings.Contains(detail, column)
}

func isInvalidInput(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextInput
}

package ledger

import "errors"

var (
	ErrEntryNotFound = errors.New("台帳に記録がありません")
	// ErrDuplicateKey は同じキーに異なる結果を記録しようとしたことを表す
	ErrDuplicateKey  = errors.New("同じ冪等性キーに異なる結果が記録されています")
	ErrIncompleteKey = errors.New("住民ID、時間枠ID、冪等性キーは必須です")
	ErrKeyTooLong    = errors.New("冪等性キーが長すぎます")
)

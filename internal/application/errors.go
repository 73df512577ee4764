package application

import (
	"errors"
	"fmt"
)

// ErrInvalidInput は入力検証エラーを表す。個別の理由はラップされる
var ErrInvalidInput = errors.New("入力が不正です")

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

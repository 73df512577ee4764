package citizen

import "errors"

var (
	ErrCitizenNotFound = errors.New("住民が見つかりません")
	ErrNameRequired    = errors.New("氏名は必須です")
	ErrContactRequired = errors.New("メールアドレスか電話番号のどちらかが必要です")
	ErrInvalidEmail    = errors.New("メールアドレスの形式が不正です")
)

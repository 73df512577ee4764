package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound    = errors.New("予約が見つかりません")
	ErrDuplicateReservation   = errors.New("この時間枠には既に有効な予約があります")
	ErrInvalidTransition      = errors.New("現在の状態からは変更できません")
	ErrAlreadyCancelled       = errors.New("予約は既にキャンセルされています")
	ErrSlotNotEnded           = errors.New("時間枠の終了前は来庁結果を登録できません")
	ErrForbidden              = errors.New("この予約を操作する権限がありません")
	ErrReferenceExhausted     = errors.New("受付番号を採番できませんでした")
	ErrReferenceTaken         = errors.New("受付番号が重複しています")
	ErrSlotIDRequired         = errors.New("時間枠IDは必須です")
	ErrCitizenIDRequired      = errors.New("住民IDは必須です")
	ErrIdempotencyKeyRequired = errors.New("冪等性キーは必須です")
	ErrInvalidReference       = errors.New("受付番号の形式が不正です")
)

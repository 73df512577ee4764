package slot

import "errors"

var (
	ErrSlotNotFound       = errors.New("時間枠が見つかりません")
	ErrSlotInactive       = errors.New("時間枠は受付を終了しています")
	ErrCapacityExceeded   = errors.New("時間枠の定員に達しています")
	ErrOccupancyUnderflow = errors.New("予約数が0のため減算できません")
	ErrSlotReferenced     = errors.New("予約が存在する時間枠は削除できません")
	ErrServiceIDRequired  = errors.New("サービスIDは必須です")
	ErrInvalidCapacity    = errors.New("定員は1以上で予約数以上である必要があります")
	ErrInvalidSlotTime    = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrInvalidRange       = errors.New("生成期間が不正です")
	ErrInvalidDayWindow   = errors.New("受付時間帯が不正です")
	ErrInvalidSlotLength  = errors.New("枠の長さが不正です")
	ErrTooManySlots       = errors.New("一度に生成できる枠数を超えています")
)

var ErrSlotAlreadyExists = errors.New("同じ開始時刻の時間枠が既に存在します")

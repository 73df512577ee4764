// Package ledger は予約試行の冪等性台帳を扱う
// 同じキーの再試行には最初に記録した結果をそのまま返す
package ledger

import "time"

// Outcome は記録された予約試行の結果
type Outcome string

const (
	OutcomeReserved         Outcome = "reserved"
	OutcomeCapacityExceeded Outcome = "capacity_exceeded"
)

// Key は (住民, 時間枠, 冪等性キー) の組
type Key struct {
	CitizenID      string
	SlotID         string
	IdempotencyKey string
}

// MaxIdempotencyKeyLength は受け付ける冪等性キーの最大長
const MaxIdempotencyKeyLength = 128

func (k Key) Validate() error {
	if k.CitizenID == "" || k.SlotID == "" {
		return ErrIncompleteKey
	}
	if k.IdempotencyKey == "" {
		return ErrIncompleteKey
	}
	if len(k.IdempotencyKey) > MaxIdempotencyKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// Entry は台帳の1行。記録後は変更しない
type Entry struct {
	Key
	Outcome       Outcome
	ReservationID *string
	CreatedAt     time.Time
}

func NewReservedEntry(key Key, reservationID string, now time.Time) *Entry {
	return &Entry{Key: key, Outcome: OutcomeReserved, ReservationID: &reservationID, CreatedAt: now}
}

func NewCapacityExceededEntry(key Key, now time.Time) *Entry {
	return &Entry{Key: key, Outcome: OutcomeCapacityExceeded, CreatedAt: now}
}

// SameOutcome は結果と予約IDが一致するかを返す
func (e *Entry) SameOutcome(other *Entry) bool {
	if e.Outcome != other.Outcome {
		return false
	}
	if e.ReservationID == nil || other.ReservationID == nil {
		return e.ReservationID == nil && other.ReservationID == nil
	}
	return *e.ReservationID == *other.ReservationID
}

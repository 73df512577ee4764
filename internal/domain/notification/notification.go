// Package notification は予約イベントの通知と送信待ち行列を扱う
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Kind は通知の種類
type Kind string

const (
	KindReservationCreated   Kind = "reservation_created"
	KindReservationCancelled Kind = "reservation_cancelled"
	KindReservationConfirmed Kind = "reservation_confirmed"
)

// Result は外部送信の結果
type Result struct {
	Delivered bool
	ID        string
	Error     error
}

// Dispatcher は外部の通知送信先
type Dispatcher interface {
	Send(ctx context.Context, kind Kind, recipient string, payload []byte) Result
}

// ReservationPayload は予約通知の本文
type ReservationPayload struct {
	ReservationID    string    `json:"reservation_id"`
	BookingReference string    `json:"booking_reference"`
	Status           string    `json:"status"`
	SlotID           string    `json:"slot_id"`
	ServiceID        string    `json:"service_id"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	CitizenName      string    `json:"citizen_name"`
}

func (p ReservationPayload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("通知本文の生成に失敗: %w", err)
	}
	return string(b), nil
}

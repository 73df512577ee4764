package notification

import (
	"context"
	"errors"
	"time"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// OutboxStatus は送信待ち行列の行の状態
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxDelivered OutboxStatus = "delivered"
	OutboxFailed    OutboxStatus = "failed"
)

func (s OutboxStatus) Valid() bool {
	return s == OutboxPending || s == OutboxDelivered || s == OutboxFailed
}

// MaxBackoff は再送間隔の上限
const MaxBackoff = time.Hour

var ErrMessageNotFound = errors.New("通知が見つかりません")

// OutboxMessage は予約トランザクションと同時に書かれる送信待ちの通知
type OutboxMessage struct {
	ID                string
	Kind              Kind
	Recipient         string
	Payload           string
	Status            OutboxStatus
	Attempts          int
	LastError         *string
	ProviderMessageID *string
	NextAttemptAt     time.Time
	CreatedAt         time.Time
	DeliveredAt       *time.Time
}

func NewOutboxMessage(kind Kind, recipient, payload string, now time.Time) *OutboxMessage {
	return &OutboxMessage{
		Kind:          kind,
		Recipient:     recipient,
		Payload:       payload,
		Status:        OutboxPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
}

// MarkDelivered は送信済みにする
func (m *OutboxMessage) MarkDelivered(providerID string, now time.Time) {
	m.Attempts++
	m.Status = OutboxDelivered
	m.LastError = nil
	if providerID != "" {
		m.ProviderMessageID = &providerID
	}
	m.DeliveredAt = &now
}

// MarkAttemptFailed は失敗を記録し、次回送信時刻を指数的に遅らせる
// 試行回数が maxAttempts に達したら failed にする
func (m *OutboxMessage) MarkAttemptFailed(cause error, now time.Time, maxAttempts int, base time.Duration) {
	m.Attempts++
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	m.LastError = &msg
	if m.Attempts >= maxAttempts {
		m.Status = OutboxFailed
		return
	}
	m.NextAttemptAt = now.Add(Backoff(m.Attempts, base))
}

// Backoff は attempts 回失敗した後の待ち時間を返す
func Backoff(attempts int, base time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// OutboxRepository は送信待ち行列のインターフェース
type OutboxRepository interface {
	// Enqueue は業務トランザクション内で通知を積む
	Enqueue(ctx context.Context, tx transaction.Tx, m *OutboxMessage) error
	// FetchDue は送信時刻を過ぎた pending を古い順に返す
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*OutboxMessage, error)
	// Save は送信結果を書き戻す
	Save(ctx context.Context, m *OutboxMessage) error
	// List は状態で絞り込んだ配送ログを新しい順に返す（status が空なら全件）
	List(ctx context.Context, status OutboxStatus, limit, offset int) ([]*OutboxMessage, error)
}

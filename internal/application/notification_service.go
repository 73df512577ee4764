package application

import (
	"context"
	"errors"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
)

var errUnknownOutboxStatus = errors.New("通知状態の指定が不正です")

// NotificationService は通知の送信履歴を参照する
type NotificationService struct {
	outboxRepo notification.OutboxRepository
}

func NewNotificationService(repo notification.OutboxRepository) *NotificationService {
	return &NotificationService{outboxRepo: repo}
}

// ListNotifications は status が空なら全件を新しい順に返す
func (s *NotificationService) ListNotifications(ctx context.Context, status string, limit, offset int) ([]*notification.OutboxMessage, error) {
	st := notification.OutboxStatus(status)
	if status != "" && !st.Valid() {
		return nil, invalid(errUnknownOutboxStatus)
	}
	limit, offset = pageBounds(limit, offset)
	return s.outboxRepo.List(ctx, st, limit, offset)
}

// Package dispatch はブローカー未設定時の通知送信先を提供する
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
)

// LogDispatcher は通知を構造化ログに書き出して配送済みとする
type LogDispatcher struct {
	log *zap.Logger
}

func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Send(_ context.Context, kind notification.Kind, recipient string, payload []byte) notification.Result {
	id := uuid.NewString()
	field := zap.ByteString("payload", payload)
	if json.Valid(payload) {
		field = zap.Any("payload", json.RawMessage(payload))
	}
	d.log.Info("通知を送信しました",
		zap.String("message_id", id),
		zap.String("kind", string(kind)),
		zap.String("recipient", recipient),
		field,
	)
	return notification.Result{Delivered: true, ID: id}
}

var _ notification.Dispatcher = (*LogDispatcher)(nil)

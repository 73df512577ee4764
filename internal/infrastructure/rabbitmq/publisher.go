// Package rabbitmq は通知をブローカーの永続キューへ送る
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
)

var ErrNotAcked = errors.New("ブローカーがメッセージを受理しませんでした")

// Envelope はキューに載せるメッセージ本文
type Envelope struct {
	MessageID   string            `json:"message_id"`
	Kind        notification.Kind `json:"kind"`
	Recipient   string            `json:"recipient"`
	Payload     json.RawMessage   `json:"payload"`
	PublishedAt time.Time         `json:"published_at"`
}

// Publisher は接続とチャネルを保持し、切断時は次の送信で張り直す
// ブローカーの確認応答を受けたものだけを配送済みとする
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// Send は notification.Dispatcher を満たす
func (p *Publisher) Send(ctx context.Context, kind notification.Kind, recipient string, payload []byte) notification.Result {
	env := Envelope{
		MessageID:   uuid.NewString(),
		Kind:        kind,
		Recipient:   recipient,
		Payload:     json.RawMessage(payload),
		PublishedAt: time.Now().UTC(),
	}
	if !json.Valid(payload) {
		env.Payload = json.RawMessage("null")
	}
	body, err := json.Marshal(env)
	if err != nil {
		return notification.Result{Error: fmt.Errorf("通知のエンコードに失敗: %w", err)}
	}

	if err := p.publish(ctx, env.MessageID, string(kind), body); err != nil {
		logger.Warn("通知の送信に失敗", zap.String("kind", string(kind)), zap.Error(err))
		return notification.Result{Error: err}
	}
	return notification.Result{Delivered: true, ID: env.MessageID}
}

func (p *Publisher) publish(ctx context.Context, messageID, kind string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Type:         kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish に失敗: %w", err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("確認応答の待機に失敗: %w", err)
	}
	if !acked {
		return ErrNotAcked
	}
	return nil
}

// channel は確認モードのチャネルを返す。呼び出し側が mu を保持する
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("キュー宣言に失敗: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("確認モードの有効化に失敗: %w", err)
	}
	p.conn, p.ch = conn, ch
	logger.Info("RabbitMQに接続しました", zap.String("queue", p.queue))
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close は接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

var _ notification.Dispatcher = (*Publisher)(nil)

package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	redisinfra "github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/metrics"
)

const relayLockName = "outbox-relay"

// OutboxStore は中継が使う送信待ち行列の操作
type OutboxStore interface {
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*notification.OutboxMessage, error)
	Save(ctx context.Context, m *notification.OutboxMessage) error
}

// Lock は取得済みのリース
type Lock interface {
	Release(ctx context.Context) error
}

// Locker は複数レプリカのうち1台だけに中継させるためのロック
// 保持者がいるときは redisinfra.ErrLockNotAcquired を返す
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lock, error)
}

type redisLocker struct {
	m *redisinfra.LockManager
}

// NewRedisLocker は Redis のリース型ロックを Locker にする
func NewRedisLocker(m *redisinfra.LockManager) Locker {
	return redisLocker{m: m}
}

func (l redisLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lock, error) {
	lock, err := l.m.TryAcquire(ctx, name, ttl)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// RelayConfig は中継の動作設定
type RelayConfig struct {
	Interval       time.Duration
	BatchSize      int
	MaxAttempts    int
	BaseBackoff    time.Duration
	SendsPerSecond float64
}

func (c *RelayConfig) normalize() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.BatchSize < 1 {
		c.BatchSize = 50
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 8
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 10 * time.Second
	}
}

// OutboxRelay は送信待ちの通知を外部へ送るワーカー
// 送信の成否は予約の結果に影響しない
type OutboxRelay struct {
	store      OutboxStore
	dispatcher notification.Dispatcher
	locker     Locker
	metrics    *metrics.Metrics
	limiter    *rate.Limiter
	cfg        RelayConfig
	now        func() time.Time

	kick   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

type RelayOption func(*OutboxRelay)

// WithLocker はサイクルごとに分散ロックを取る
func WithLocker(l Locker) RelayOption {
	return func(r *OutboxRelay) { r.locker = l }
}

func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *OutboxRelay) { r.metrics = m }
}

func WithRelayClock(now func() time.Time) RelayOption {
	return func(r *OutboxRelay) { r.now = now }
}

// NewOutboxRelay は新しい中継を作成
func NewOutboxRelay(store OutboxStore, d notification.Dispatcher, cfg RelayConfig, opts ...RelayOption) *OutboxRelay {
	cfg.normalize()
	limit := rate.Inf
	burst := 1
	if cfg.SendsPerSecond > 0 {
		limit = rate.Limit(cfg.SendsPerSecond)
		if b := int(cfg.SendsPerSecond); b > burst {
			burst = b
		}
	}
	r := &OutboxRelay{
		store:      store,
		dispatcher: d,
		limiter:    rate.NewLimiter(limit, burst),
		cfg:        cfg,
		now:        time.Now,
		kick:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Notify は次のサイクルを待たずに中継を起こす。ブロックしない
func (r *OutboxRelay) Notify() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Start は中継を開始する。Stop かコンテキストのキャンセルまで戻らない
func (r *OutboxRelay) Start(ctx context.Context) {
	logger.Info("通知中継開始",
		zap.Duration("interval", r.cfg.Interval),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Int("max_attempts", r.cfg.MaxAttempts),
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	r.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("通知中継停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("通知中継停止（シグナル受信）")
			return
		case <-ticker.C:
			r.cycle(ctx)
		case <-r.kick:
			r.cycle(ctx)
		}
	}
}

// Stop は中継を停止し、実行中のサイクルの終了を待つ
func (r *OutboxRelay) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *OutboxRelay) cycle(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		logger.Error("通知中継サイクル失敗", zap.Error(err))
	}
}

// RunOnce は送信時刻を過ぎた通知を1バッチ送り、送信できた件数を返す
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	if r.locker != nil {
		lock, err := r.locker.TryAcquire(ctx, relayLockName, r.lockTTL())
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			logger.Debug("他のレプリカが中継中")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("中継ロックの解放に失敗", zap.Error(err))
			}
		}()
	}

	due, err := r.store.FetchDue(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	r.metrics.OutboxDue(len(due))
	if len(due) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, m := range due {
		if err := r.limiter.Wait(ctx); err != nil {
			return delivered, err
		}
		if r.deliver(ctx, m) {
			delivered++
		}
	}
	logger.Debug("通知中継サイクル完了", zap.Int("due", len(due)), zap.Int("delivered", delivered))
	return delivered, nil
}

func (r *OutboxRelay) deliver(ctx context.Context, m *notification.OutboxMessage) bool {
	res := r.dispatcher.Send(ctx, m.Kind, m.Recipient, []byte(m.Payload))
	now := r.now()

	result := "delivered"
	if res.Delivered {
		m.MarkDelivered(res.ID, now)
	} else {
		m.MarkAttemptFailed(res.Error, now, r.cfg.MaxAttempts, r.cfg.BaseBackoff)
		result = "retry"
		if m.Status == notification.OutboxFailed {
			result = "failed"
			logger.Error("通知の送信を断念",
				zap.String("outbox_id", m.ID),
				zap.String("kind", string(m.Kind)),
				zap.Int("attempts", m.Attempts),
				zap.Error(res.Error),
			)
		} else {
			logger.Warn("通知の送信に失敗、再試行予定",
				zap.String("outbox_id", m.ID),
				zap.Int("attempts", m.Attempts),
				zap.Time("next_attempt_at", m.NextAttemptAt),
				zap.Error(res.Error),
			)
		}
	}
	r.metrics.Notification(string(m.Kind), result)

	if err := r.store.Save(context.WithoutCancel(ctx), m); err != nil {
		logger.Error("通知の送信結果を保存できません", zap.String("outbox_id", m.ID), zap.Error(err))
	}
	return res.Delivered
}

// lockTTL は1サイクルを覆う長さ。最低でも間隔の2倍
func (r *OutboxRelay) lockTTL() time.Duration {
	ttl := 2 * r.cfg.Interval
	if r.cfg.SendsPerSecond > 0 {
		if need := time.Duration(float64(r.cfg.BatchSize)/r.cfg.SendsPerSecond*float64(time.Second)) + r.cfg.Interval; need > ttl {
			ttl = need
		}
	}
	return ttl
}

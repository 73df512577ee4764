package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに行う
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DistributedLock は取得済みのロック
type DistributedLock struct {
	client  *redis.Client
	key     string
	token   string
	metrics *metrics.Metrics
}

// LockManager は SET NX によるリース型ロックを発行する
// アウトボックス中継を複数レプリカのうち1台だけで動かすために使う
type LockManager struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

func NewLockManager(client *redis.Client, m *metrics.Metrics) *LockManager {
	return &LockManager{client: client, metrics: m}
}

// TryAcquire は待たずにロックを試みる。保持者がいれば ErrLockNotAcquired
func (m *LockManager) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*DistributedLock, error) {
	start := time.Now()
	key := "lock:" + name
	token := uuid.NewString()

	ok, err := m.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		m.metrics.LockObserved("acquire", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		m.metrics.LockObserved("acquire", "failed", time.Since(start).Seconds())
		return nil, ErrLockNotAcquired
	}
	m.metrics.LockObserved("acquire", "success", time.Since(start).Seconds())
	return &DistributedLock{client: m.client, key: key, token: token, metrics: m.metrics}, nil
}

// Release はロックを解放する。期限切れで他者に渡っていれば ErrLockNotOwned
func (l *DistributedLock) Release(ctx context.Context) error {
	start := time.Now()
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		l.metrics.LockObserved("release", "error", time.Since(start).Seconds())
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if n == 0 {
		l.metrics.LockObserved("release", "failed", time.Since(start).Seconds())
		return ErrLockNotOwned
	}
	l.metrics.LockObserved("release", "success", time.Since(start).Seconds())
	return nil
}

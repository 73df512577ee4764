package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("キャッシュが見つかりません")

// SlotCache は時間枠の残数表示用キャッシュ
// 予約判定には使わない。予約と取消のコミット後に無効化される
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSlotCache(client *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{client: client, ttl: ttl}
}

func (c *SlotCache) GetRemaining(ctx context.Context, slotID string) (int, error) {
	val, err := c.client.Get(ctx, remainingKey(slotID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

func (c *SlotCache) SetRemaining(ctx context.Context, slotID string, remaining int) error {
	if err := c.client.Set(ctx, remainingKey(slotID), remaining, c.ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

func (c *SlotCache) Invalidate(ctx context.Context, slotID string) error {
	if err := c.client.Del(ctx, remainingKey(slotID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func remainingKey(slotID string) string {
	return fmt.Sprintf("slots:remaining:%s", slotID)
}

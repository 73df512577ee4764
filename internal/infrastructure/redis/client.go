package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/config"
)

const connectTimeout = 3 * time.Second

// NewClient は短いタイムアウトの Redis クライアントを作成する
// キャッシュとロックは補助的な用途なので、応答が遅ければすぐ諦める
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// Connect はクライアントを作成して疎通を確認する。失敗時はクライアントを閉じる
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := NewClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis(%s)に接続できません: %w", cfg.Addr(), err)
	}
	return client, nil
}

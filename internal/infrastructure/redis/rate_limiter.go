package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/config"
)

// トークンバケットを1往復で評価する
// 戻り値は { 許可(1/0), 残りトークン, 次の補充までのミリ秒 }
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = math.max(1, tonumber(ARGV[4]))
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals * refill_tokens)
	last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_ms }
`)

// Decision はレート制限の判定結果
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter は利用者単位のトークンバケット
type RateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	cfg.Normalize()
	return &RateLimiter{client: client, cfg: cfg}
}

// Allow は identity のバケットからトークンを1つ消費する
func (l *RateLimiter) Allow(ctx context.Context, identity string, now time.Time) (Decision, error) {
	key := l.cfg.Prefix + ":" + identity
	res, err := tokenBucketScript.Run(ctx, l.client, []string{key},
		now.UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("レート制限の評価に失敗: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("レート制限スクリプトの戻り値が不正です: %s", strconv.Itoa(len(res)))
	}
	return Decision{
		Allowed:    res[0] == 1,
		Limit:      l.cfg.Capacity,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

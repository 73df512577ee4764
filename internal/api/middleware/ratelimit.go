package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api"
	redisinfra "github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
)

// Limiter はトークンバケットの判定を行う
type Limiter interface {
	Allow(ctx context.Context, identity string, now time.Time) (redisinfra.Decision, error)
}

// RateLimit は予約 POST を利用者単位で制限する
// limiter が nil なら何もしない。Redis 障害時は通す
func RateLimit(limiter Limiter) echo.MiddlewareFunc {
	if limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := "ip:" + c.RealIP()
			if actor, err := ActorFrom(c); err == nil {
				identity = "user:" + actor.ID
			}
			route := c.Request().Method + " " + c.Path()

			d, err := limiter.Allow(c.Request().Context(), identity+":"+route, time.Now())
			if err != nil {
				logger.Warn("レート制限を評価できないため許可します", zap.String("identity", identity), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				logger.Debug("レート制限により拒否", zap.String("identity", identity), zap.String("route", route))
				return api.NewError(http.StatusTooManyRequests, "rate_limited", "リクエストが多すぎます。しばらくしてから再試行してください")
			}
			return next(c)
		}
	}
}

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
)

const actorKey = "actor"

var errActorMissing = errors.New("認証情報がありません")

// Claims はアクセストークンのクレーム。sub は住民なら住民ID
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewToken は HS256 で署名したアクセストークンを発行する
func NewToken(secret, subject string, role application.Role, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Authenticate は Bearer トークンを検証して利用者をコンテキストに載せる
func Authenticate(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return api.NewError(http.StatusUnauthorized, "unauthorized", "認証トークンが必要です")
			}

			var claims Claims
			tok, err := parser.ParseWithClaims(raw, &claims, keyFunc)
			if err != nil || !tok.Valid {
				return api.NewError(http.StatusUnauthorized, "unauthorized", "認証トークンが無効です")
			}
			role := application.Role(claims.Role)
			if claims.Subject == "" || !role.Valid() {
				return api.NewError(http.StatusUnauthorized, "unauthorized", "認証トークンのクレームが不正です")
			}

			c.Set(actorKey, application.Actor{ID: claims.Subject, Role: role})
			return next(c)
		}
	}
}

// RequireRole は指定ロール以外を 403 で拒否する
func RequireRole(roles ...application.Role) echo.MiddlewareFunc {
	allowed := make(map[application.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := ActorFrom(c)
			if err != nil {
				return api.NewError(http.StatusUnauthorized, "unauthorized", err.Error())
			}
			if !allowed[actor.Role] {
				return api.NewError(http.StatusForbidden, "forbidden", "この操作を行う権限がありません")
			}
			return next(c)
		}
	}
}

// ActorFrom は Authenticate が載せた利用者を取り出す
func ActorFrom(c echo.Context) (application.Actor, error) {
	actor, ok := c.Get(actorKey).(application.Actor)
	if !ok {
		return application.Actor{}, errActorMissing
	}
	return actor, nil
}

// WithActor はテストやバッチから利用者を直接設定する
func WithActor(c echo.Context, actor application.Actor) {
	c.Set(actorKey, actor)
}

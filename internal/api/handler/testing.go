package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
)

// NewTestEcho はテスト用のEchoインスタンスを作成する
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}

// WithTestActor は認証ミドルウェアを通さずに利用者を設定する
func WithTestActor(actor application.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.WithActor(c, actor)
			return next(c)
		}
	}
}

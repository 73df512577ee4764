// Package router は HTTP ルーティングを組み立てる
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/handler"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/config"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/metrics"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health       *handler.HealthHandler
	Catalog      *handler.CatalogHandler
	Slot         *handler.SlotHandler
	Reservation  *handler.ReservationHandler
	Citizen      *handler.CitizenHandler
	Notification *handler.NotificationHandler
}

// Options はルーティングの動作設定
// Metrics が nil なら /metrics を公開しない。RateLimiter が nil なら制限しない
type Options struct {
	JWTSecret   string
	Metrics     *metrics.Metrics
	MetricsAuth config.MetricsConfig
	RateLimiter middleware.Limiter
}

// Register は /health, /metrics と /api/v1 配下を登録する
func Register(e *echo.Echo, h Handlers, opts Options) {
	if opts.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(opts.Metrics))
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(opts.MetricsAuth))
	}
	e.GET("/health", h.Health.Check)
	e.HEAD("/health", h.Health.Check)

	v1 := e.Group("/api/v1", middleware.Authenticate(opts.JWTSecret))

	v1.GET("/services", h.Catalog.List)
	v1.GET("/services/:id", h.Catalog.GetByID)
	v1.GET("/services/:id/slots", h.Slot.ListByService)
	v1.GET("/slots/:id", h.Slot.GetByID)

	citizen := middleware.RequireRole(application.RoleCitizen)
	v1.POST("/reservations", h.Reservation.Create, citizen, middleware.RateLimit(opts.RateLimiter))
	v1.GET("/reservations", h.Reservation.ListMine, citizen)
	// 所有者か職員かはサービス側で判定する
	v1.GET("/reservations/:id", h.Reservation.GetByID)
	v1.GET("/reservations/ref/:reference", h.Reservation.GetByReference)
	v1.POST("/reservations/:id/cancel", h.Reservation.Cancel)

	officer := v1.Group("/officer", middleware.RequireRole(application.RoleOfficer, application.RoleAdmin))
	officer.POST("/reservations/:id/confirm", h.Reservation.Confirm)
	officer.POST("/reservations/:id/complete", h.Reservation.Complete)
	officer.POST("/reservations/:id/no-show", h.Reservation.NoShow)
	officer.GET("/slots/:id/reservations", h.Reservation.ListBySlot)

	admin := v1.Group("/admin", middleware.RequireRole(application.RoleAdmin))
	admin.POST("/services", h.Catalog.Create)
	admin.POST("/services/:id/slots", h.Slot.Create)
	admin.POST("/services/:id/slots/generate", h.Slot.Generate)
	admin.POST("/slots/:id/deactivate", h.Slot.Deactivate)
	admin.DELETE("/slots/:id", h.Slot.Delete)
	admin.POST("/citizens", h.Citizen.Register)
	admin.GET("/citizens/:id", h.Citizen.GetByID)
	admin.GET("/notifications", h.Notification.List)
}

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/metrics"
)

// ルート未定義のリクエストは1つのラベルにまとめる
const unmatchedRoute = "unmatched"

// PrometheusMiddleware はルート単位で HTTP メトリクスを記録する
// ラベルはルート定義（/api/v1/slots/:id）を使い、実際の ID は載せない
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			m.ObserveHTTP(c.Request().Method, routeLabel(c.Path()), status, time.Since(start))
			return err
		}
	}
}

// routeLabel はグループの受け皿（/api/v1/*）や空のパスを unmatched にする
func routeLabel(path string) string {
	if path == "" || strings.HasSuffix(path, "/*") {
		return unmatchedRoute
	}
	return path
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
)

func actorOf(c echo.Context) (application.Actor, error) {
	actor, err := middleware.ActorFrom(c)
	if err != nil {
		return application.Actor{}, api.NewError(http.StatusUnauthorized, "unauthorized", "認証が必要です")
	}
	return actor, nil
}

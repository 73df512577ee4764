package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

// StatusClientClosedRequest はクライアントが応答を待たずに切断したことを表す（nginx 互換）
const StatusClientClosedRequest = 499

type errorMapping struct {
	target error
	code   int
	reason string
}

// 上から順に評価する。ストア障害は業務エラーより先に見る
var errorMappings = []errorMapping{
	{transaction.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "store_unavailable"},
	{context.Canceled, StatusClientClosedRequest, "request_cancelled"},
	{application.ErrInvalidInput, http.StatusBadRequest, "invalid_request"},
	{slot.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
	{citizen.ErrCitizenNotFound, http.StatusNotFound, "citizen_not_found"},
	{reservation.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found"},
	{publicservice.ErrServiceNotFound, http.StatusNotFound, "service_not_found"},
	{slot.ErrSlotInactive, http.StatusUnprocessableEntity, "slot_inactive"},
	{publicservice.ErrServiceInactive, http.StatusUnprocessableEntity, "service_inactive"},
	{slot.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{reservation.ErrDuplicateReservation, http.StatusConflict, "duplicate_reservation"},
	{reservation.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{reservation.ErrAlreadyCancelled, http.StatusConflict, "invalid_transition"},
	{reservation.ErrSlotNotEnded, http.StatusConflict, "slot_not_ended"},
	{slot.ErrSlotReferenced, http.StatusConflict, "slot_referenced"},
	{slot.ErrSlotAlreadyExists, http.StatusConflict, "slot_already_exists"},
	{reservation.ErrForbidden, http.StatusForbidden, "forbidden"},
}

// toHTTPError はドメインエラーを HTTP エラーに変換する
// 対応のないエラーは 500 とし、原因はログにだけ残す
func toHTTPError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return err
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := err.Error()
			if m.code >= 500 {
				msg = "一時的に処理できません。しばらくしてから再試行してください"
			}
			return api.NewError(m.code, m.reason, msg).SetInternal(err)
		}
	}
	return api.NewError(http.StatusInternalServerError, "internal", "内部サーバーエラー").SetInternal(err)
}

func badRequest(msg string) error {
	return api.NewError(http.StatusBadRequest, "invalid_request", msg)
}

var (
	errInvalidDate  = errors.New("日付は YYYY-MM-DD 形式で指定してください")
	errInvalidClock = errors.New("時刻は HH:MM 形式で指定してください")
)

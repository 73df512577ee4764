package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"
)

// HeaderIdempotencyKey は予約の再試行を識別するヘッダー
const HeaderIdempotencyKey = "Idempotency-Key"

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

// CreateReservationRequest の idempotency_key は Idempotency-Key ヘッダーでも指定できる（ヘッダー優先）
type CreateReservationRequest struct {
	SlotID         string `json:"slot_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=128" example:"tap-2026-11-02-001"`
}

type ReservationResponse struct {
	ID               string     `json:"id"`
	SlotID           string     `json:"slot_id"`
	CitizenID        string     `json:"citizen_id"`
	Status           string     `json:"status" example:"pending"`
	BookingReference string     `json:"booking_reference" example:"K7QM2XHP"`
	CancelledBy      *string    `json:"cancelled_by,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, SlotID: r.SlotID, CitizenID: r.CitizenID,
		Status: string(r.Status), BookingReference: r.BookingReference,
		CancelledBy: r.CancelledBy, ConfirmedAt: r.ConfirmedAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toReservationResponses(list []*reservation.Reservation) []ReservationResponse {
	resp := make([]ReservationResponse, len(list))
	for i, r := range list {
		resp[i] = toReservationResponse(r)
	}
	return resp
}

// Create godoc
// @Summary 時間枠を予約
// @Description 同じ Idempotency-Key の再送には最初の結果を返す
// @Tags reservations
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer トークン"
// @Param Idempotency-Key header string false "冪等性キー"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "満員または二重予約"
// @Failure 422 {object} api.ErrorResponse "受付終了"
// @Failure 503 {object} api.ErrorResponse
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}
	if key == "" {
		return badRequest("Idempotency-Key が必要です")
	}

	r, err := h.service.Reserve(c.Request().Context(), application.ReserveInput{
		SlotID: req.SlotID, CitizenID: actor.ID, IdempotencyKey: key,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// GetByReference godoc
// @Summary 受付番号で予約を取得
// @Tags reservations
// @Produce json
// @Param reference path string true "受付番号"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/ref/{reference} [get]
func (h *ReservationHandler) GetByReference(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	ref := strings.ToUpper(strings.TrimSpace(c.Param("reference")))
	r, err := h.service.GetByReference(c.Request().Context(), ref, actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ListMine godoc
// @Summary 自分の予約一覧
// @Tags reservations
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Router /reservations [get]
func (h *ReservationHandler) ListMine(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	list, err := h.service.ListCitizenReservations(c.Request().Context(), actor.ID, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponses(list))
}

// Cancel godoc
// @Summary 予約を取り消す
// @Description 取消済みの予約に対しては何もせず現在の状態を返す
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.service.Release)
}

// Confirm godoc
// @Summary 予約を確定（窓口）
// @Tags officer
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /officer/reservations/{id}/confirm [post]
func (h *ReservationHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.service.Confirm)
}

// Complete godoc
// @Summary 来庁済みにする（窓口）
// @Tags officer
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 409 {object} api.ErrorResponse "枠の終了前"
// @Router /officer/reservations/{id}/complete [post]
func (h *ReservationHandler) Complete(c echo.Context) error {
	return h.transition(c, h.service.Complete)
}

// NoShow godoc
// @Summary 無断欠席にする（窓口）
// @Tags officer
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Router /officer/reservations/{id}/no-show [post]
func (h *ReservationHandler) NoShow(c echo.Context) error {
	return h.transition(c, h.service.MarkNoShow)
}

// ListBySlot godoc
// @Summary 時間枠の予約一覧（窓口）
// @Tags officer
// @Produce json
// @Param id path string true "時間枠ID"
// @Success 200 {array} ReservationResponse
// @Router /officer/slots/{id}/reservations [get]
func (h *ReservationHandler) ListBySlot(c echo.Context) error {
	list, err := h.service.ListSlotReservations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponses(list))
}

type transitionFunc func(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error)

func (h *ReservationHandler) transition(c echo.Context, fn transitionFunc) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	r, err := fn(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

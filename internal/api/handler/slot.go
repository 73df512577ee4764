package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
)

const dateLayout = "2006-01-02"

type SlotHandler struct {
	service SlotServiceInterface
}

func NewSlotHandler(s SlotServiceInterface) *SlotHandler {
	return &SlotHandler{service: s}
}

type CreateSlotRequest struct {
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required"`
	Capacity int       `json:"capacity" validate:"required,min=1,max=1000" example:"3"`
}

type GenerateSlotsRequest struct {
	From        string `json:"from" validate:"required,datetime=2006-01-02" example:"2026-11-09"`
	To          string `json:"to" validate:"required,datetime=2006-01-02" example:"2026-11-13"`
	DayStart    string `json:"day_start" validate:"required,datetime=15:04" example:"09:00"`
	DayEnd      string `json:"day_end" validate:"required" example:"17:00"`
	SlotMinutes int    `json:"slot_minutes" validate:"required,min=5,max=480" example:"30"`
	Capacity    int    `json:"capacity" validate:"required,min=1,max=1000" example:"2"`
	Weekdays    []int  `json:"weekdays,omitempty" validate:"omitempty,dive,min=0,max=6" example:"1,2,3,4,5"`
}

type GenerateSlotsResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type SlotResponse struct {
	ID          string    `json:"id"`
	ServiceID   string    `json:"service_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Capacity    int       `json:"capacity"`
	Occupancy   int       `json:"occupancy"`
	Remaining   int       `json:"remaining"`
	IsAvailable bool      `json:"is_available"`
}

func toSlotResponse(s *slot.TimeSlot) SlotResponse {
	remaining := s.Remaining()
	if !s.IsAvailable {
		remaining = 0
	}
	return SlotResponse{
		ID: s.ID, ServiceID: s.ServiceID, StartAt: s.StartAt, EndAt: s.EndAt,
		Capacity: s.Capacity, Occupancy: s.Occupancy, Remaining: remaining, IsAvailable: s.IsAvailable,
	}
}

// ListByService godoc
// @Summary サービスの時間枠一覧
// @Tags slots
// @Produce json
// @Param id path string true "サービスID"
// @Param from query string false "開始（RFC3339 または YYYY-MM-DD）"
// @Param to query string false "終了（RFC3339 または YYYY-MM-DD、含まない）"
// @Success 200 {array} SlotResponse
// @Router /services/{id}/slots [get]
func (h *SlotHandler) ListByService(c echo.Context) error {
	from, err := parseTimeParam(c.QueryParam("from"))
	if err != nil {
		return badRequest("from の形式が不正です")
	}
	to, err := parseTimeParam(c.QueryParam("to"))
	if err != nil {
		return badRequest("to の形式が不正です")
	}
	slots, err := h.service.ListSlots(c.Request().Context(), c.Param("id"), from, to)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]SlotResponse, len(slots))
	for i, s := range slots {
		resp[i] = toSlotResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary 時間枠を取得
// @Tags slots
// @Produce json
// @Param id path string true "時間枠ID"
// @Success 200 {object} SlotResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /slots/{id} [get]
func (h *SlotHandler) GetByID(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.service.GetSlot(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	resp := toSlotResponse(s)
	if remaining, err := h.service.GetRemaining(ctx, s.ID); err == nil {
		resp.Remaining = remaining
	}
	return c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary 時間枠を作成
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "サービスID"
// @Param request body CreateSlotRequest true "時間枠"
// @Success 201 {object} SlotResponse
// @Failure 409 {object} api.ErrorResponse "同じ開始時刻の枠が存在"
// @Router /admin/services/{id}/slots [post]
func (h *SlotHandler) Create(c echo.Context) error {
	var req CreateSlotRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateSlot(c.Request().Context(), application.CreateSlotInput{
		ServiceID: c.Param("id"), StartAt: req.StartAt, EndAt: req.EndAt, Capacity: req.Capacity,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toSlotResponse(s))
}

// Generate godoc
// @Summary 時間枠を一括生成
// @Description 期間内の指定曜日に受付時間帯を刻んで枠を作る。既存の開始時刻は飛ばす
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "サービスID"
// @Param request body GenerateSlotsRequest true "生成条件"
// @Success 201 {object} GenerateSlotsResponse
// @Router /admin/services/{id}/slots/generate [post]
func (h *SlotHandler) Generate(c echo.Context) error {
	var req GenerateSlotsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	input, err := req.toInput(c.Param("id"))
	if err != nil {
		return badRequest(err.Error())
	}
	res, err := h.service.GenerateSlots(c.Request().Context(), input)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, GenerateSlotsResponse{Created: res.Created, Skipped: res.Skipped})
}

// Deactivate godoc
// @Summary 時間枠の受付を停止
// @Tags admin
// @Param id path string true "時間枠ID"
// @Success 204
// @Router /admin/slots/{id}/deactivate [post]
func (h *SlotHandler) Deactivate(c echo.Context) error {
	if err := h.service.DeactivateSlot(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete godoc
// @Summary 時間枠を削除
// @Tags admin
// @Param id path string true "時間枠ID"
// @Success 204
// @Failure 409 {object} api.ErrorResponse "予約が存在する"
// @Router /admin/slots/{id} [delete]
func (h *SlotHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteSlot(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (r GenerateSlotsRequest) toInput(serviceID string) (application.GenerateSlotsInput, error) {
	from, err := parseDate(r.From)
	if err != nil {
		return application.GenerateSlotsInput{}, err
	}
	to, err := parseDate(r.To)
	if err != nil {
		return application.GenerateSlotsInput{}, err
	}
	dayStart, err := parseClock(r.DayStart)
	if err != nil {
		return application.GenerateSlotsInput{}, err
	}
	dayEnd, err := parseClock(r.DayEnd)
	if err != nil {
		return application.GenerateSlotsInput{}, err
	}
	weekdays := make([]time.Weekday, len(r.Weekdays))
	for i, w := range r.Weekdays {
		weekdays[i] = time.Weekday(w)
	}
	return application.GenerateSlotsInput{
		ServiceID:  serviceID,
		From:       from,
		To:         to,
		DayStart:   dayStart,
		DayEnd:     dayEnd,
		SlotLength: time.Duration(r.SlotMinutes) * time.Minute,
		Capacity:   r.Capacity,
		Weekdays:   weekdays,
	}, nil
}

// parseDate は日付を UTC の正午で表す。±12時間までのタイムゾーンで同じ日付になる
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return d.Add(12 * time.Hour), nil
}

// parseClock は "HH:MM" を0時からの経過時間にする。"24:00" は日の終わり
func parseClock(s string) (time.Duration, error) {
	if s == "24:00" {
		return 24 * time.Hour, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, errInvalidClock
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func parseTimeParam(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

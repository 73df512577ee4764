package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
)

type NotificationHandler struct {
	service NotificationServiceInterface
}

func NewNotificationHandler(s NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: s}
}

type NotificationResponse struct {
	ID                string     `json:"id"`
	Kind              string     `json:"kind"`
	Recipient         string     `json:"recipient"`
	Status            string     `json:"status"`
	Attempts          int        `json:"attempts"`
	LastError         *string    `json:"last_error,omitempty"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty"`
	NextAttemptAt     time.Time  `json:"next_attempt_at"`
	CreatedAt         time.Time  `json:"created_at"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

func toNotificationResponse(m *notification.OutboxMessage) NotificationResponse {
	return NotificationResponse{
		ID: m.ID, Kind: string(m.Kind), Recipient: m.Recipient, Status: string(m.Status),
		Attempts: m.Attempts, LastError: m.LastError, ProviderMessageID: m.ProviderMessageID,
		NextAttemptAt: m.NextAttemptAt, CreatedAt: m.CreatedAt, DeliveredAt: m.DeliveredAt,
	}
}

// List godoc
// @Summary 通知の送信履歴
// @Tags admin
// @Produce json
// @Param status query string false "pending / delivered / failed"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} NotificationResponse
// @Router /admin/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	msgs, err := h.service.ListNotifications(c.Request().Context(), c.QueryParam("status"), limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]NotificationResponse, len(msgs))
	for i, m := range msgs {
		resp[i] = toNotificationResponse(m)
	}
	return c.JSON(http.StatusOK, resp)
}

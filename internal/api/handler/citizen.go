package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
)

type CitizenHandler struct {
	service CitizenServiceInterface
}

func NewCitizenHandler(s CitizenServiceInterface) *CitizenHandler {
	return &CitizenHandler{service: s}
}

type RegisterCitizenRequest struct {
	Name  string  `json:"name" validate:"required,max=100" example:"山田花子"`
	Email *string `json:"email,omitempty" validate:"omitempty,email" example:"hanako@example.jp"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20" example:"090-1234-5678"`
}

type CitizenResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCitizenResponse(c *citizen.Citizen) CitizenResponse {
	return CitizenResponse{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, CreatedAt: c.CreatedAt}
}

// Register godoc
// @Summary 住民を登録
// @Description メールアドレスか電話番号のどちらかが必要
// @Tags admin
// @Accept json
// @Produce json
// @Param request body RegisterCitizenRequest true "住民情報"
// @Success 201 {object} CitizenResponse
// @Router /admin/citizens [post]
func (h *CitizenHandler) Register(c echo.Context) error {
	var req RegisterCitizenRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ct, err := h.service.RegisterCitizen(c.Request().Context(), application.RegisterCitizenInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toCitizenResponse(ct))
}

// GetByID godoc
// @Summary 住民を取得
// @Tags admin
// @Produce json
// @Param id path string true "住民ID"
// @Success 200 {object} CitizenResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/citizens/{id} [get]
func (h *CitizenHandler) GetByID(c echo.Context) error {
	ct, err := h.service.GetCitizen(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toCitizenResponse(ct))
}

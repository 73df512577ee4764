package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
)

type CatalogHandler struct {
	service CatalogServiceInterface
}

func NewCatalogHandler(s CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: s}
}

type CreateServiceRequest struct {
	Name       string  `json:"name" validate:"required,max=200" example:"住民票の写し交付"`
	Department *string `json:"department,omitempty" validate:"omitempty,max=100" example:"市民課"`
}

type ServiceResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Department      *string   `json:"department"`
	DepartmentLabel string    `json:"department_label"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

func toServiceResponse(s *publicservice.Service) ServiceResponse {
	return ServiceResponse{
		ID: s.ID, Name: s.Name, Department: s.Department, DepartmentLabel: s.DepartmentLabel(),
		IsActive: s.IsActive, CreatedAt: s.CreatedAt,
	}
}

// Create godoc
// @Summary サービスを登録
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateServiceRequest true "サービス情報"
// @Success 201 {object} ServiceResponse
// @Router /admin/services [post]
func (h *CatalogHandler) Create(c echo.Context) error {
	var req CreateServiceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateService(c.Request().Context(), req.Name, req.Department)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toServiceResponse(s))
}

// GetByID godoc
// @Summary サービスを取得
// @Tags services
// @Produce json
// @Param id path string true "サービスID"
// @Success 200 {object} ServiceResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /services/{id} [get]
func (h *CatalogHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toServiceResponse(s))
}

// List godoc
// @Summary サービス一覧
// @Description 職員以外には受付中のサービスだけを返す
// @Tags services
// @Produce json
// @Param include_inactive query bool false "停止中も含める（職員のみ）"
// @Success 200 {array} ServiceResponse
// @Router /services [get]
func (h *CatalogHandler) List(c echo.Context) error {
	includeInactive := false
	if c.QueryParam("include_inactive") == "true" {
		if actor, err := actorOf(c); err == nil && actor.IsStaff() {
			includeInactive = true
		}
	}
	services, err := h.service.ListServices(c.Request().Context(), includeInactive)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]ServiceResponse, len(services))
	for i, s := range services {
		resp[i] = toServiceResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
)

// CitizenService は住民の登録と参照を扱う
type CitizenService struct {
	citizenRepo citizen.Repository
	now         func() time.Time
}

func NewCitizenService(repo citizen.Repository) *CitizenService {
	return &CitizenService{citizenRepo: repo, now: time.Now}
}

type RegisterCitizenInput struct {
	Name  string
	Email *string
	Phone *string
}

func (s *CitizenService) RegisterCitizen(ctx context.Context, input RegisterCitizenInput) (*citizen.Citizen, error) {
	c := citizen.NewCitizen(input.Name, input.Email, input.Phone, s.now())
	if err := c.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.citizenRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Info("住民を登録しました", zap.String("citizen_id", c.ID))
	return c, nil
}

func (s *CitizenService) GetCitizen(ctx context.Context, id string) (*citizen.Citizen, error) {
	return s.citizenRepo.GetByID(ctx, id)
}

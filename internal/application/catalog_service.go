package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
)

// CatalogService は行政サービスの登録と参照を扱う
type CatalogService struct {
	serviceRepo publicservice.Repository
	now         func() time.Time
}

func NewCatalogService(repo publicservice.Repository) *CatalogService {
	return &CatalogService{serviceRepo: repo, now: time.Now}
}

func (s *CatalogService) CreateService(ctx context.Context, name string, department *string) (*publicservice.Service, error) {
	svc := publicservice.NewService(name, department, s.now())
	if err := svc.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, err
	}
	logger.Info("サービスを登録しました", zap.String("service_id", svc.ID), zap.String("name", svc.Name))
	return svc, nil
}

func (s *CatalogService) GetService(ctx context.Context, id string) (*publicservice.Service, error) {
	return s.serviceRepo.GetByID(ctx, id)
}

// ListServices は住民向けには受付中のサービスだけを返す
func (s *CatalogService) ListServices(ctx context.Context, includeInactive bool) ([]*publicservice.Service, error) {
	return s.serviceRepo.List(ctx, !includeInactive)
}

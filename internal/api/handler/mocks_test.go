package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
)

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) one(args mock.Arguments) (*reservation.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) many(args mock.Arguments) ([]*reservation.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) Reserve(ctx context.Context, input application.ReserveInput) (*reservation.Reservation, error) {
	return m.one(m.Called(ctx, input))
}

func (m *MockReservationService) Release(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error) {
	return m.one(m.Called(ctx, id, actor))
}

func (m *MockReservationService) Confirm(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error) {
	return m.one(m.Called(ctx, id, actor))
}

func (m *MockReservationService) Complete(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error) {
	return m.one(m.Called(ctx, id, actor))
}

func (m *MockReservationService) MarkNoShow(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error) {
	return m.one(m.Called(ctx, id, actor))
}

func (m *MockReservationService) GetReservation(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error) {
	return m.one(m.Called(ctx, id, actor))
}

func (m *MockReservationService) GetByReference(ctx context.Context, ref string, actor application.Actor) (*reservation.Reservation, error) {
	return m.one(m.Called(ctx, ref, actor))
}

func (m *MockReservationService) ListCitizenReservations(ctx context.Context, citizenID string, limit, offset int) ([]*reservation.Reservation, error) {
	return m.many(m.Called(ctx, citizenID, limit, offset))
}

func (m *MockReservationService) ListSlotReservations(ctx context.Context, slotID string) ([]*reservation.Reservation, error) {
	return m.many(m.Called(ctx, slotID))
}

// MockSlotService はSlotServiceInterfaceのモック
type MockSlotService struct {
	mock.Mock
}

func (m *MockSlotService) CreateSlot(ctx context.Context, input application.CreateSlotInput) (*slot.TimeSlot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slot.TimeSlot), args.Error(1)
}

func (m *MockSlotService) GenerateSlots(ctx context.Context, input application.GenerateSlotsInput) (*application.GenerateResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.GenerateResult), args.Error(1)
}

func (m *MockSlotService) GetSlot(ctx context.Context, id string) (*slot.TimeSlot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slot.TimeSlot), args.Error(1)
}

func (m *MockSlotService) GetRemaining(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockSlotService) ListSlots(ctx context.Context, serviceID string, from, to time.Time) ([]*slot.TimeSlot, error) {
	args := m.Called(ctx, serviceID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*slot.TimeSlot), args.Error(1)
}

func (m *MockSlotService) DeactivateSlot(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSlotService) DeleteSlot(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockCatalogService はCatalogServiceInterfaceのモック
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateService(ctx context.Context, name string, department *string) (*publicservice.Service, error) {
	args := m.Called(ctx, name, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*publicservice.Service), args.Error(1)
}

func (m *MockCatalogService) GetService(ctx context.Context, id string) (*publicservice.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*publicservice.Service), args.Error(1)
}

func (m *MockCatalogService) ListServices(ctx context.Context, includeInactive bool) ([]*publicservice.Service, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*publicservice.Service), args.Error(1)
}

// MockCitizenService はCitizenServiceInterfaceのモック
type MockCitizenService struct {
	mock.Mock
}

func (m *MockCitizenService) RegisterCitizen(ctx context.Context, input application.RegisterCitizenInput) (*citizen.Citizen, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*citizen.Citizen), args.Error(1)
}

func (m *MockCitizenService) GetCitizen(ctx context.Context, id string) (*citizen.Citizen, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*citizen.Citizen), args.Error(1)
}

// MockNotificationService はNotificationServiceInterfaceのモック
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) ListNotifications(ctx context.Context, status string, limit, offset int) ([]*notification.OutboxMessage, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.OutboxMessage), args.Error(1)
}

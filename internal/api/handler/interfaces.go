package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
)

// CatalogServiceInterface は行政サービスのインターフェース
type CatalogServiceInterface interface {
	CreateService(ctx context.Context, name string, department *string) (*publicservice.Service, error)
	GetService(ctx context.Context, id string) (*publicservice.Service, error)
	ListServices(ctx context.Context, includeInactive bool) ([]*publicservice.Service, error)
}

// SlotServiceInterface は時間枠サービスのインターフェース
type SlotServiceInterface interface {
	CreateSlot(ctx context.Context, input application.CreateSlotInput) (*slot.TimeSlot, error)
	GenerateSlots(ctx context.Context, input application.GenerateSlotsInput) (*application.GenerateResult, error)
	GetSlot(ctx context.Context, id string) (*slot.TimeSlot, error)
	GetRemaining(ctx context.Context, id string) (int, error)
	ListSlots(ctx context.Context, serviceID string, from, to time.Time) ([]*slot.TimeSlot, error)
	DeactivateSlot(ctx context.Context, id string) error
	DeleteSlot(ctx context.Context, id string) error
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	Reserve(ctx context.Context, input application.ReserveInput) (*reservation.Reservation, error)
	Release(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error)
	Confirm(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error)
	Complete(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error)
	MarkNoShow(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string, actor application.Actor) (*reservation.Reservation, error)
	GetByReference(ctx context.Context, ref string, actor application.Actor) (*reservation.Reservation, error)
	ListCitizenReservations(ctx context.Context, citizenID string, limit, offset int) ([]*reservation.Reservation, error)
	ListSlotReservations(ctx context.Context, slotID string) ([]*reservation.Reservation, error)
}

// CitizenServiceInterface は住民サービスのインターフェース
type CitizenServiceInterface interface {
	RegisterCitizen(ctx context.Context, input application.RegisterCitizenInput) (*citizen.Citizen, error)
	GetCitizen(ctx context.Context, id string) (*citizen.Citizen, error)
}

// NotificationServiceInterface は通知履歴のインターフェース
type NotificationServiceInterface interface {
	ListNotifications(ctx context.Context, status string, limit, offset int) ([]*notification.OutboxMessage, error)
}

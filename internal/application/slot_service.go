package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
)

// 表示期間の指定がないときの既定幅
const defaultListWindow = 14 * 24 * time.Hour

type SlotService struct {
	slotRepo    slot.Repository
	serviceRepo publicservice.Repository
	cache       SlotCache
	location    *time.Location
	now         func() time.Time
}

type SlotOption func(*SlotService)

func WithSlotServiceCache(c SlotCache) SlotOption {
	return func(s *SlotService) { s.cache = c }
}

// WithLocation は一括生成で日付と時刻を解釈するタイムゾーンを設定する
func WithLocation(loc *time.Location) SlotOption {
	return func(s *SlotService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithSlotClock(now func() time.Time) SlotOption {
	return func(s *SlotService) { s.now = now }
}

func NewSlotService(sr slot.Repository, pr publicservice.Repository, opts ...SlotOption) *SlotService {
	s := &SlotService{slotRepo: sr, serviceRepo: pr, location: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateSlotInput struct {
	ServiceID string
	StartAt   time.Time
	EndAt     time.Time
	Capacity  int
}

func (s *SlotService) CreateSlot(ctx context.Context, input CreateSlotInput) (*slot.TimeSlot, error) {
	if err := s.requireActiveService(ctx, input.ServiceID); err != nil {
		return nil, err
	}
	ts := slot.NewTimeSlot(input.ServiceID, input.StartAt, input.EndAt, input.Capacity, s.now())
	if err := ts.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.slotRepo.Create(ctx, ts); err != nil {
		return nil, err
	}
	logger.Info("時間枠を作成しました", zap.String("slot_id", ts.ID), zap.Time("start_at", ts.StartAt))
	return ts, nil
}

type GenerateSlotsInput struct {
	ServiceID  string
	From       time.Time
	To         time.Time
	DayStart   time.Duration
	DayEnd     time.Duration
	SlotLength time.Duration
	Capacity   int
	Weekdays   []time.Weekday
}

type GenerateResult struct {
	Created int
	Skipped int
}

// GenerateSlots は期間内の枠をまとめて作る。開始時刻が重複する既存枠は飛ばす
func (s *SlotService) GenerateSlots(ctx context.Context, input GenerateSlotsInput) (*GenerateResult, error) {
	if err := s.requireActiveService(ctx, input.ServiceID); err != nil {
		return nil, err
	}
	slots, err := slot.Generate(slot.GenerateInput{
		ServiceID:  input.ServiceID,
		From:       input.From,
		To:         input.To,
		DayStart:   input.DayStart,
		DayEnd:     input.DayEnd,
		SlotLength: input.SlotLength,
		Capacity:   input.Capacity,
		Weekdays:   input.Weekdays,
		Location:   s.location,
	}, s.now())
	if err != nil {
		return nil, invalid(err)
	}

	created, err := s.slotRepo.CreateBulk(ctx, slots)
	if err != nil {
		return nil, err
	}
	result := &GenerateResult{Created: created, Skipped: len(slots) - created}
	logger.Info("時間枠を一括生成しました",
		zap.String("service_id", input.ServiceID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *SlotService) GetSlot(ctx context.Context, id string) (*slot.TimeSlot, error) {
	return s.slotRepo.GetByID(ctx, id)
}

// ListSlots はサービスの枠を返す。to が from 以前なら既定幅で補う
func (s *SlotService) ListSlots(ctx context.Context, serviceID string, from, to time.Time) ([]*slot.TimeSlot, error) {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return nil, err
	}
	if from.IsZero() {
		from = s.now()
	}
	if !to.After(from) {
		to = from.Add(defaultListWindow)
	}
	return s.slotRepo.ListByService(ctx, serviceID, from, to)
}

// GetRemaining は表示用の残数を返す。キャッシュがなければ DB から読んで載せる
func (s *SlotService) GetRemaining(ctx context.Context, slotID string) (int, error) {
	if s.cache != nil {
		if n, err := s.cache.GetRemaining(ctx, slotID); err == nil {
			return n, nil
		}
	}
	ts, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return 0, err
	}
	remaining := ts.Remaining()
	if !ts.IsAvailable {
		remaining = 0
	}
	if s.cache != nil {
		if err := s.cache.SetRemaining(ctx, slotID, remaining); err != nil {
			logger.Warn("残数キャッシュの保存に失敗", zap.String("slot_id", slotID), zap.Error(err))
		}
	}
	return remaining, nil
}

func (s *SlotService) CountRemaining(ctx context.Context, serviceID string, from, to time.Time) (int, error) {
	if !to.After(from) {
		return 0, invalid(slot.ErrInvalidRange)
	}
	return s.slotRepo.CountRemaining(ctx, serviceID, from, to)
}

// DeactivateSlot は受付を止める。既存の予約はそのまま残る
func (s *SlotService) DeactivateSlot(ctx context.Context, id string) error {
	if err := s.slotRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	logger.Info("時間枠の受付を停止しました", zap.String("slot_id", id))
	return nil
}

func (s *SlotService) DeleteSlot(ctx context.Context, id string) error {
	if err := s.slotRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, slot.ErrSlotReferenced) {
			logger.Debug("予約のある時間枠は削除できません", zap.String("slot_id", id))
		}
		return err
	}
	s.invalidate(ctx, id)
	logger.Info("時間枠を削除しました", zap.String("slot_id", id))
	return nil
}

func (s *SlotService) requireActiveService(ctx context.Context, serviceID string) error {
	if serviceID == "" {
		return invalid(slot.ErrServiceIDRequired)
	}
	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return err
	}
	if !svc.IsActive {
		return publicservice.ErrServiceInactive
	}
	return nil
}

func (s *SlotService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Warn("残数キャッシュの無効化に失敗", zap.String("slot_id", id), zap.Error(err))
	}
}

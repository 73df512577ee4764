package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/ledger"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/metrics"
)

// 受付番号の採番を諦めるまでの試行回数
const defaultReferenceAttempts = 5

type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	slotRepo        slot.Repository
	citizenRepo     citizen.Repository
	ledgerRepo      ledger.Repository
	outboxRepo      notification.OutboxRepository

	cache             SlotCache
	notifier          OutboxNotifier
	metrics           *metrics.Metrics
	now               func() time.Time
	newReference      reservation.ReferenceGenerator
	referenceAttempts int
}

type ReservationOption func(*ReservationService)

func WithSlotCache(c SlotCache) ReservationOption {
	return func(s *ReservationService) { s.cache = c }
}

func WithOutboxNotifier(n OutboxNotifier) ReservationOption {
	return func(s *ReservationService) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) ReservationOption {
	return func(s *ReservationService) { s.metrics = m }
}

func WithClock(now func() time.Time) ReservationOption {
	return func(s *ReservationService) { s.now = now }
}

func WithReferenceGenerator(gen reservation.ReferenceGenerator, attempts int) ReservationOption {
	return func(s *ReservationService) {
		s.newReference = gen
		if attempts > 0 {
			s.referenceAttempts = attempts
		}
	}
}

func NewReservationService(
	tm transaction.Manager,
	rr reservation.Repository,
	sr slot.Repository,
	cr citizen.Repository,
	lr ledger.Repository,
	or notification.OutboxRepository,
	opts ...ReservationOption,
) *ReservationService {
	s := &ReservationService{
		txManager: tm, reservationRepo: rr, slotRepo: sr, citizenRepo: cr, ledgerRepo: lr, outboxRepo: or,
		now:               time.Now,
		newReference:      reservation.NewBookingReference,
		referenceAttempts: defaultReferenceAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ReserveInput struct {
	SlotID         string
	CitizenID      string
	IdempotencyKey string
}

// Reserve は時間枠を1人分確保する
// 同じ (住民, 枠, 冪等性キー) の再試行には最初の結果をそのまま返す
func (s *ReservationService) Reserve(ctx context.Context, input ReserveInput) (*reservation.Reservation, error) {
	key := ledger.Key{CitizenID: input.CitizenID, SlotID: input.SlotID, IdempotencyKey: input.IdempotencyKey}
	if err := key.Validate(); err != nil {
		return nil, invalid(err)
	}
	// ID は UUID で保存している。形式が違えば該当なしとして扱い、ストアには問い合わせない
	if _, err := uuid.Parse(key.SlotID); err != nil {
		return nil, s.reject(slot.ErrSlotNotFound)
	}
	if _, err := uuid.Parse(key.CitizenID); err != nil {
		return nil, s.reject(citizen.ErrCitizenNotFound)
	}

	// 記録済みならロックを取らずに返す
	if res, ok, err := s.replay(ctx, nil, key); ok || err != nil {
		return res, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return nil, err
	}
	defer tx.Rollback()

	sl, err := s.slotRepo.GetForUpdate(ctx, tx, key.SlotID)
	if err != nil {
		return nil, s.reject(err)
	}

	// ロック待ちの間に同じキーの試行が確定している場合がある
	if res, ok, err := s.replay(ctx, tx, key); ok || err != nil {
		return res, err
	}

	now := s.now()
	if !sl.IsBookable(now) {
		return nil, s.reject(slot.ErrSlotInactive)
	}
	c, err := s.citizenRepo.GetByIDTx(ctx, tx, key.CitizenID)
	if err != nil {
		return nil, s.reject(err)
	}

	if err := s.slotRepo.IncrementOccupancy(ctx, tx, sl.ID); err != nil {
		if !errors.Is(err, slot.ErrCapacityExceeded) {
			s.metrics.ReservationOutcome(metrics.OutcomeError)
			return nil, err
		}
		return nil, s.recordCapacityExceeded(ctx, tx, key, now)
	}

	if _, err := s.reservationRepo.FindActive(ctx, tx, sl.ID, c.ID); err == nil {
		logger.Debug("有効な予約が既にあります", zap.String("slot_id", sl.ID), zap.String("citizen_id", c.ID))
		s.metrics.ReservationOutcome(metrics.OutcomeDuplicate)
		return nil, reservation.ErrDuplicateReservation
	} else if !errors.Is(err, reservation.ErrReservationNotFound) {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return nil, err
	}

	ref, err := s.allocateReference(ctx, tx)
	if err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return nil, err
	}

	res := reservation.NewReservation(sl.ID, c.ID, key.IdempotencyKey, ref, now)
	if err := res.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		if errors.Is(err, reservation.ErrDuplicateReservation) {
			s.metrics.ReservationOutcome(metrics.OutcomeDuplicate)
		} else {
			s.metrics.ReservationOutcome(metrics.OutcomeError)
		}
		return nil, err
	}
	if err := s.ledgerRepo.RecordOutcome(ctx, tx, ledger.NewReservedEntry(key, res.ID, now)); err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return nil, err
	}
	if err := s.enqueue(ctx, tx, notification.KindReservationCreated, res, sl, c, now); err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return nil, err
	}

	s.afterCommit(ctx, sl.ID)
	s.metrics.ReservationOutcome(metrics.OutcomeReserved)
	logger.Info("予約を受け付けました",
		zap.String("reservation_id", res.ID),
		zap.String("booking_reference", res.BookingReference),
		zap.String("slot_id", sl.ID),
	)
	return res, nil
}

// replay は台帳に記録があればその結果を返す。ok が false なら未記録
func (s *ReservationService) replay(ctx context.Context, tx transaction.Tx, key ledger.Key) (*reservation.Reservation, bool, error) {
	entry, err := s.ledgerRepo.Lookup(ctx, tx, key)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return nil, false, err
	}

	s.metrics.ReservationOutcome(metrics.OutcomeReplayed)
	switch entry.Outcome {
	case ledger.OutcomeCapacityExceeded:
		return nil, true, slot.ErrCapacityExceeded
	case ledger.OutcomeReserved:
		if entry.ReservationID == nil {
			return nil, true, fmt.Errorf("台帳の予約IDが空です: %w", ledger.ErrDuplicateKey)
		}
		res, err := s.reservationRepo.GetByIDTx(ctx, tx, *entry.ReservationID)
		if err != nil {
			return nil, true, err
		}
		return res, true, nil
	default:
		return nil, true, fmt.Errorf("台帳の結果が不明です: %s", entry.Outcome)
	}
}

func (s *ReservationService) recordCapacityExceeded(ctx context.Context, tx transaction.Tx, key ledger.Key, now time.Time) error {
	if err := s.ledgerRepo.RecordOutcome(ctx, tx, ledger.NewCapacityExceededEntry(key, now)); err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return err
	}
	if err := tx.Commit(); err != nil {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
		return err
	}
	logger.Debug("時間枠が満員です", zap.String("slot_id", key.SlotID), zap.String("citizen_id", key.CitizenID))
	s.metrics.ReservationOutcome(metrics.OutcomeCapacityExceeded)
	return slot.ErrCapacityExceeded
}

// reject は業務上の拒否とストア障害を区別して数える
func (s *ReservationService) reject(err error) error {
	if errors.Is(err, transaction.ErrStoreUnavailable) {
		s.metrics.ReservationOutcome(metrics.OutcomeError)
	} else {
		s.metrics.ReservationOutcome(metrics.OutcomeRejected)
	}
	return err
}

func (s *ReservationService) allocateReference(ctx context.Context, tx transaction.Tx) (string, error) {
	for i := 0; i < s.referenceAttempts; i++ {
		ref, err := s.newReference()
		if err != nil {
			return "", err
		}
		exists, err := s.reservationRepo.ReferenceExists(ctx, tx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
		logger.Debug("受付番号が衝突したため再生成します", zap.Int("attempt", i+1))
	}
	return "", reservation.ErrReferenceExhausted
}

// Release は予約を取り消して枠を1つ空ける。取消済みなら何もせず返す
func (s *ReservationService) Release(ctx context.Context, reservationID string, actor Actor) (*reservation.Reservation, error) {
	current, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}
	if !actor.CanAccess(current) {
		s.metrics.ReleaseOutcome("forbidden")
		return nil, reservation.ErrForbidden
	}
	if current.Status == reservation.StatusCancelled {
		s.metrics.ReleaseOutcome("noop")
		return current, nil
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}
	defer tx.Rollback()

	// ロック順は常に 時間枠 -> 予約
	sl, err := s.slotRepo.GetForUpdate(ctx, tx, current.SlotID)
	if err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}
	res, err := s.reservationRepo.GetByIDTx(ctx, tx, reservationID)
	if err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}

	now := s.now()
	from := res.Status
	if err := res.Cancel(actor.ID, now); err != nil {
		if errors.Is(err, reservation.ErrAlreadyCancelled) {
			s.metrics.ReleaseOutcome("noop")
			return res, nil
		}
		s.metrics.ReleaseOutcome("rejected")
		return nil, err
	}
	if err := s.reservationRepo.UpdateStatus(ctx, tx, res, from); err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}
	if err := s.slotRepo.DecrementOccupancy(ctx, tx, sl.ID); err != nil {
		if errors.Is(err, slot.ErrOccupancyUnderflow) {
			logger.Error("有効な予約があるのに予約数が0です",
				zap.String("slot_id", sl.ID), zap.String("reservation_id", res.ID))
		}
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}
	c, err := s.citizenRepo.GetByIDTx(ctx, tx, res.CitizenID)
	if err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}
	if err := s.enqueue(ctx, tx, notification.KindReservationCancelled, res, sl, c, now); err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		s.metrics.ReleaseOutcome("error")
		return nil, err
	}

	s.afterCommit(ctx, sl.ID)
	s.metrics.ReleaseOutcome("released")
	logger.Info("予約を取り消しました", zap.String("reservation_id", res.ID), zap.String("actor_id", actor.ID))
	return res, nil
}

// Confirm は窓口で予約を確定する
func (s *ReservationService) Confirm(ctx context.Context, reservationID string, actor Actor) (*reservation.Reservation, error) {
	return s.transition(ctx, reservationID, actor, "confirm", func(r *reservation.Reservation, _ *slot.TimeSlot, now time.Time) error {
		return r.Confirm(now)
	}, notification.KindReservationConfirmed)
}

// Complete は来庁済みにする。枠の終了後のみ
func (s *ReservationService) Complete(ctx context.Context, reservationID string, actor Actor) (*reservation.Reservation, error) {
	return s.transition(ctx, reservationID, actor, "complete", func(r *reservation.Reservation, sl *slot.TimeSlot, now time.Time) error {
		return r.Complete(now, sl.EndAt)
	}, "")
}

// MarkNoShow は無断欠席にする。枠の終了後のみ
func (s *ReservationService) MarkNoShow(ctx context.Context, reservationID string, actor Actor) (*reservation.Reservation, error) {
	return s.transition(ctx, reservationID, actor, "no_show", func(r *reservation.Reservation, sl *slot.TimeSlot, now time.Time) error {
		return r.MarkNoShow(now, sl.EndAt)
	}, "")
}

// transition は職員による状態遷移を条件付き更新で行う。予約数は変えない
func (s *ReservationService) transition(
	ctx context.Context,
	reservationID string,
	actor Actor,
	name string,
	apply func(*reservation.Reservation, *slot.TimeSlot, time.Time) error,
	kind notification.Kind,
) (*reservation.Reservation, error) {
	if !actor.IsStaff() {
		return nil, reservation.ErrForbidden
	}
	current, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sl, err := s.slotRepo.GetForUpdate(ctx, tx, current.SlotID)
	if err != nil {
		return nil, err
	}
	res, err := s.reservationRepo.GetByIDTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	from := res.Status
	if err := apply(res, sl, now); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.UpdateStatus(ctx, tx, res, from); err != nil {
		return nil, err
	}
	if kind != "" {
		c, err := s.citizenRepo.GetByIDTx(ctx, tx, res.CitizenID)
		if err != nil {
			return nil, err
		}
		if err := s.enqueue(ctx, tx, kind, res, sl, c, now); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if kind != "" && s.notifier != nil {
		s.notifier.Notify()
	}
	s.metrics.Transition(name)
	logger.Info("予約の状態を変更しました",
		zap.String("reservation_id", res.ID),
		zap.String("from", string(from)),
		zap.String("to", string(res.Status)),
		zap.String("actor_id", actor.ID),
	)
	return res, nil
}

func (s *ReservationService) enqueue(ctx context.Context, tx transaction.Tx, kind notification.Kind, r *reservation.Reservation, sl *slot.TimeSlot, c *citizen.Citizen, now time.Time) error {
	recipient := c.NotificationRecipient()
	if recipient == "" {
		logger.Warn("通知先がないため通知を省略します", zap.String("citizen_id", c.ID), zap.String("kind", string(kind)))
		return nil
	}
	payload, err := notification.ReservationPayload{
		ReservationID:    r.ID,
		BookingReference: r.BookingReference,
		Status:           string(r.Status),
		SlotID:           sl.ID,
		ServiceID:        sl.ServiceID,
		StartAt:          sl.StartAt,
		EndAt:            sl.EndAt,
		CitizenName:      c.Name,
	}.Encode()
	if err != nil {
		return err
	}
	return s.outboxRepo.Enqueue(ctx, tx, notification.NewOutboxMessage(kind, recipient, payload, now))
}

// afterCommit はコミット後の副作用。失敗しても予約結果は変えない
func (s *ReservationService) afterCommit(ctx context.Context, slotID string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, slotID); err != nil {
			logger.Warn("残数キャッシュの無効化に失敗", zap.String("slot_id", slotID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

// GetReservation は本人か職員だけが参照できる
func (s *ReservationService) GetReservation(ctx context.Context, id string, actor Actor) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(res) {
		return nil, reservation.ErrForbidden
	}
	return res, nil
}

func (s *ReservationService) GetByReference(ctx context.Context, ref string, actor Actor) (*reservation.Reservation, error) {
	if !reservation.IsValidReference(ref) {
		return nil, reservation.ErrReservationNotFound
	}
	res, err := s.reservationRepo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(res) {
		return nil, reservation.ErrForbidden
	}
	return res, nil
}

func (s *ReservationService) ListCitizenReservations(ctx context.Context, citizenID string, limit, offset int) ([]*reservation.Reservation, error) {
	limit, offset = pageBounds(limit, offset)
	return s.reservationRepo.ListByCitizen(ctx, citizenID, limit, offset)
}

// ListSlotReservations は窓口画面用に枠の予約を古い順に返す
func (s *ReservationService) ListSlotReservations(ctx context.Context, slotID string) ([]*reservation.Reservation, error) {
	if _, err := s.slotRepo.GetByID(ctx, slotID); err != nil {
		return nil, err
	}
	return s.reservationRepo.ListBySlot(ctx, slotID)
}

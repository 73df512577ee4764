package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/ledger"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/sqlite"
)

var baseTime = time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db        *sqlx.DB
	tm        *TxManager
	services  *ServiceRepository
	slots     *SlotRepository
	citizens  *CitizenRepository
	resv      *ReservationRepository
	ledger    *LedgerRepository
	outbox    *OutboxRepository
	serviceID string
	citizenID string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.NewInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db: db, tm: NewTxManager(db),
		services: NewServiceRepository(db), slots: NewSlotRepository(db),
		citizens: NewCitizenRepository(db), resv: NewReservationRepository(db),
		ledger: NewLedgerRepository(db), outbox: NewOutboxRepository(db),
	}
	svc := publicservice.NewService("住民票の写し交付", nil, baseTime)
	require.NoError(t, f.services.Create(ctx, svc))
	f.serviceID = svc.ID

	email := "hanako@example.jp"
	c := citizen.NewCitizen("山田花子", &email, nil, baseTime)
	require.NoError(t, f.citizens.Create(ctx, c))
	f.citizenID = c.ID
	return f
}

func (f *fixture) newSlot(t *testing.T, start time.Time, capacity int) *slot.TimeSlot {
	t.Helper()
	s := slot.NewTimeSlot(f.serviceID, start, start.Add(30*time.Minute), capacity, baseTime)
	require.NoError(t, f.slots.Create(context.Background(), s))
	return s
}

func (f *fixture) inTx(t *testing.T, fn func(tx transaction.Tx)) {
	t.Helper()
	tx, err := f.tm.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestServiceRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	dept := "市民課"
	other := publicservice.NewService("印鑑登録", &dept, baseTime)
	other.IsActive = false
	require.NoError(t, f.services.Create(ctx, other))

	got, err := f.services.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "市民課", got.DepartmentLabel())
	assert.False(t, got.IsActive)

	all, err := f.services.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.services.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, publicservice.UnassignedDepartment, active[0].DepartmentLabel())

	_, err = f.services.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, publicservice.ErrServiceNotFound)
}

func TestCitizenRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.citizens.GetByID(ctx, f.citizenID)
	require.NoError(t, err)
	assert.Equal(t, "hanako@example.jp", c.NotificationRecipient())
	assert.Nil(t, c.Phone)

	f.inTx(t, func(tx transaction.Tx) {
		_, err := f.citizens.GetByIDTx(ctx, tx, "nobody")
		assert.ErrorIs(t, err, citizen.ErrCitizenNotFound)
	})
}

func TestSlotRepository_占有数の増減(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.newSlot(t, baseTime.Add(24*time.Hour), 2)

	f.inTx(t, func(tx transaction.Tx) {
		locked, err := f.slots.GetForUpdate(ctx, tx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, locked.Occupancy)

		require.NoError(t, f.slots.IncrementOccupancy(ctx, tx, s.ID))
		require.NoError(t, f.slots.IncrementOccupancy(ctx, tx, s.ID))
		assert.ErrorIs(t, f.slots.IncrementOccupancy(ctx, tx, s.ID), slot.ErrCapacityExceeded)
	})

	got, err := f.slots.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Occupancy)
	assert.True(t, got.IsFull())
	assert.True(t, got.StartAt.Equal(s.StartAt))

	f.inTx(t, func(tx transaction.Tx) {
		require.NoError(t, f.slots.DecrementOccupancy(ctx, tx, s.ID))
		require.NoError(t, f.slots.DecrementOccupancy(ctx, tx, s.ID))
		assert.ErrorIs(t, f.slots.DecrementOccupancy(ctx, tx, s.ID), slot.ErrOccupancyUnderflow)
	})

	got, err = f.slots.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Occupancy)
}

func TestSlotRepository_トランザクション必須(t *testing.T) {
	f := setup(t)
	assert.Error(t, f.slots.IncrementOccupancy(context.Background(), nil, "x"))
	_, err := f.slots.GetForUpdate(context.Background(), nil, "x")
	assert.Error(t, err)
}

func TestSlotRepository_一括作成は既存を飛ばす(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := baseTime.Add(48 * time.Hour)
	f.newSlot(t, day, 3)

	var batch []*slot.TimeSlot
	for i := 0; i < 4; i++ {
		start := day.Add(time.Duration(i) * 30 * time.Minute)
		batch = append(batch, slot.NewTimeSlot(f.serviceID, start, start.Add(30*time.Minute), 3, baseTime))
	}
	n, err := f.slots.CreateBulk(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.slots.CreateBulk(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := f.slots.ListByService(ctx, f.serviceID, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 4)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].StartAt.Before(list[i].StartAt))
	}

	remaining, err := f.slots.CountRemaining(ctx, f.serviceID, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 12, remaining)

	require.NoError(t, f.slots.Deactivate(ctx, list[0].ID))
	remaining, err = f.slots.CountRemaining(ctx, f.serviceID, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)

	assert.ErrorIs(t, f.slots.Create(ctx, slot.NewTimeSlot(f.serviceID, day, day.Add(time.Hour), 1, baseTime)), slot.ErrSlotAlreadyExists)
}

func TestSlotRepository_削除(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	free := f.newSlot(t, baseTime.Add(time.Hour), 1)
	used := f.newSlot(t, baseTime.Add(2*time.Hour), 1)

	f.inTx(t, func(tx transaction.Tx) {
		r := reservation.NewReservation(used.ID, f.citizenID, "k", "ABCD2345", baseTime)
		require.NoError(t, f.resv.Create(ctx, tx, r))
	})

	require.NoError(t, f.slots.Delete(ctx, free.ID))
	assert.ErrorIs(t, f.slots.Delete(ctx, free.ID), slot.ErrSlotNotFound)
	assert.ErrorIs(t, f.slots.Delete(ctx, used.ID), slot.ErrSlotReferenced)
	assert.ErrorIs(t, f.slots.Deactivate(ctx, "missing"), slot.ErrSlotNotFound)
}

func TestReservationRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.newSlot(t, baseTime.Add(time.Hour), 5)

	r := reservation.NewReservation(s.ID, f.citizenID, "idem-1", "ABCD2345", baseTime)
	f.inTx(t, func(tx transaction.Tx) {
		require.NoError(t, f.resv.Create(ctx, tx, r))

		exists, err := f.resv.ReferenceExists(ctx, tx, "ABCD2345")
		require.NoError(t, err)
		assert.True(t, exists)

		active, err := f.resv.FindActive(ctx, tx, s.ID, f.citizenID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, active.ID)
	})

	t.Run("同じ枠に2件目の有効予約は不可", func(t *testing.T) {
		tx, err := f.tm.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		dup := reservation.NewReservation(s.ID, f.citizenID, "idem-2", "WXYZ6789", baseTime)
		assert.ErrorIs(t, f.resv.Create(ctx, tx, dup), reservation.ErrDuplicateReservation)
	})

	t.Run("受付番号の衝突", func(t *testing.T) {
		other := f.newSlot(t, baseTime.Add(3*time.Hour), 1)
		tx, err := f.tm.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()
		clash := reservation.NewReservation(other.ID, f.citizenID, "idem-3", "ABCD2345", baseTime)
		assert.ErrorIs(t, f.resv.Create(ctx, tx, clash), reservation.ErrReferenceTaken)
	})

	got, err := f.resv.GetByReference(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, reservation.StatusPending, got.Status)

	// 条件付き更新
	require.NoError(t, got.Cancel(f.citizenID, baseTime.Add(time.Minute)))
	f.inTx(t, func(tx transaction.Tx) {
		require.NoError(t, f.resv.UpdateStatus(ctx, tx, got, reservation.StatusPending))
		assert.ErrorIs(t, f.resv.UpdateStatus(ctx, tx, got, reservation.StatusPending), reservation.ErrInvalidTransition)
	})

	cancelled, err := f.resv.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)

	// 取消後は同じ枠を再予約できる
	f.inTx(t, func(tx transaction.Tx) {
		_, err := f.resv.FindActive(ctx, tx, s.ID, f.citizenID)
		assert.ErrorIs(t, err, reservation.ErrReservationNotFound)
		again := reservation.NewReservation(s.ID, f.citizenID, "idem-4", "QRST2345", baseTime.Add(time.Hour))
		require.NoError(t, f.resv.Create(ctx, tx, again))
	})

	list, err := f.resv.ListByCitizen(ctx, f.citizenID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "QRST2345", list[0].BookingReference)

	bySlot, err := f.resv.ListBySlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, bySlot, 2)
}

func TestLedgerRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.newSlot(t, baseTime.Add(time.Hour), 1)
	key := ledger.Key{CitizenID: f.citizenID, SlotID: s.ID, IdempotencyKey: "k1"}

	_, err := f.ledger.Lookup(ctx, nil, key)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	r := reservation.NewReservation(s.ID, f.citizenID, "k1", "ABCD2345", baseTime)
	f.inTx(t, func(tx transaction.Tx) {
		require.NoError(t, f.resv.Create(ctx, tx, r))
		require.NoError(t, f.ledger.RecordOutcome(ctx, tx, ledger.NewReservedEntry(key, r.ID, baseTime)))
		// 同じ結果の再記録は受け入れる
		require.NoError(t, f.ledger.RecordOutcome(ctx, tx, ledger.NewReservedEntry(key, r.ID, baseTime)))
		assert.ErrorIs(t, f.ledger.RecordOutcome(ctx, tx, ledger.NewCapacityExceededEntry(key, baseTime)), ledger.ErrDuplicateKey)
	})

	e, err := f.ledger.Lookup(ctx, nil, key)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeReserved, e.Outcome)
	require.NotNil(t, e.ReservationID)
	assert.Equal(t, r.ID, *e.ReservationID)

	fullKey := ledger.Key{CitizenID: f.citizenID, SlotID: s.ID, IdempotencyKey: "k2"}
	f.inTx(t, func(tx transaction.Tx) {
		require.NoError(t, f.ledger.RecordOutcome(ctx, tx, ledger.NewCapacityExceededEntry(fullKey, baseTime)))
		got, err := f.ledger.Lookup(ctx, tx, fullKey)
		require.NoError(t, err)
		assert.Equal(t, ledger.OutcomeCapacityExceeded, got.Outcome)
		assert.Nil(t, got.ReservationID)
	})
}

func TestOutboxRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := notification.NewOutboxMessage(notification.KindReservationCreated, "a@example.jp", `{"n":1}`, baseTime)
	later := notification.NewOutboxMessage(notification.KindReservationCancelled, "b@example.jp", `{"n":2}`, baseTime.Add(time.Hour))
	f.inTx(t, func(tx transaction.Tx) {
		require.NoError(t, f.outbox.Enqueue(ctx, tx, first))
		require.NoError(t, f.outbox.Enqueue(ctx, tx, later))
	})

	due, err := f.outbox.FetchDue(ctx, baseTime.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, first.ID, due[0].ID)
	assert.JSONEq(t, `{"n":1}`, due[0].Payload)

	due[0].MarkDelivered("mq-1", baseTime.Add(time.Minute))
	require.NoError(t, f.outbox.Save(ctx, due[0]))

	later.MarkAttemptFailed(assert.AnError, baseTime.Add(time.Hour), 5, time.Minute)
	require.NoError(t, f.outbox.Save(ctx, later))

	due, err = f.outbox.FetchDue(ctx, baseTime.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due, "再送時刻前は対象外")

	due, err = f.outbox.FetchDue(ctx, baseTime.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Attempts)

	delivered, err := f.outbox.List(ctx, notification.OutboxDelivered, 10, 0)
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	require.NotNil(t, delivered[0].ProviderMessageID)
	assert.Equal(t, "mq-1", *delivered[0].ProviderMessageID)

	all, err := f.outbox.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, f.outbox.Save(ctx, &notification.OutboxMessage{ID: "missing", NextAttemptAt: baseTime}), notification.ErrMessageNotFound)
}

package reservation

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// IsActive は枠を占有している状態かを返す
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal は以後変更されない状態かを返す
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

func (s Status) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

// Reservation は住民による時間枠の予約
type Reservation struct {
	ID               string
	SlotID           string
	CitizenID        string
	Status           Status
	IdempotencyKey   string
	BookingReference string
	CancelledBy      *string
	ConfirmedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewReservation は保留中の予約を作成する
func NewReservation(slotID, citizenID, idempotencyKey, reference string, now time.Time) *Reservation {
	return &Reservation{
		SlotID:           slotID,
		CitizenID:        citizenID,
		Status:           StatusPending,
		IdempotencyKey:   idempotencyKey,
		BookingReference: reference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (r *Reservation) IsActive() bool {
	return r.Status.IsActive()
}

// IsOwnedBy は住民本人の予約かを返す
func (r *Reservation) IsOwnedBy(citizenID string) bool {
	return citizenID != "" && r.CitizenID == citizenID
}

// Confirm は窓口で予約を確定する（pending -> confirmed）
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != StatusPending {
		return ErrInvalidTransition
	}
	r.Status = StatusConfirmed
	r.ConfirmedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel は予約を取り消す（pending|confirmed -> cancelled）
func (r *Reservation) Cancel(actorID string, now time.Time) error {
	switch r.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidTransition
	}
	r.Status = StatusCancelled
	if actorID != "" {
		r.CancelledBy = &actorID
	}
	r.UpdatedAt = now
	return nil
}

// Complete は来庁済みにする（confirmed -> completed、枠の終了後のみ）
func (r *Reservation) Complete(now, slotEnd time.Time) error {
	return r.finish(StatusCompleted, now, slotEnd)
}

// MarkNoShow は無断欠席にする（confirmed -> no_show、枠の終了後のみ）
func (r *Reservation) MarkNoShow(now, slotEnd time.Time) error {
	return r.finish(StatusNoShow, now, slotEnd)
}

func (r *Reservation) finish(to Status, now, slotEnd time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	if now.Before(slotEnd) {
		return ErrSlotNotEnded
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

func (r *Reservation) Validate() error {
	if r.SlotID == "" {
		return ErrSlotIDRequired
	}
	if r.CitizenID == "" {
		return ErrCitizenIDRequired
	}
	if r.IdempotencyKey == "" {
		return ErrIdempotencyKeyRequired
	}
	if !IsValidReference(r.BookingReference) {
		return ErrInvalidReference
	}
	return nil
}

// Package slot は予約可能な時間枠と定員を扱う
package slot

import "time"

// TimeSlot はサービスの予約可能時間帯
// Occupancy は予約サービスのトランザクション内でのみ増減する
type TimeSlot struct {
	ID          string
	ServiceID   string
	StartAt     time.Time
	EndAt       time.Time
	Capacity    int
	Occupancy   int
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTimeSlot は空きのある新規枠を作成する
func NewTimeSlot(serviceID string, startAt, endAt time.Time, capacity int, now time.Time) *TimeSlot {
	return &TimeSlot{
		ServiceID:   serviceID,
		StartAt:     startAt.UTC(),
		EndAt:       endAt.UTC(),
		Capacity:    capacity,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *TimeSlot) Validate() error {
	if s.ServiceID == "" {
		return ErrServiceIDRequired
	}
	if s.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if !s.EndAt.After(s.StartAt) {
		return ErrInvalidSlotTime
	}
	if s.Occupancy < 0 || s.Occupancy > s.Capacity {
		return ErrInvalidCapacity
	}
	return nil
}

// Remaining は残り枠数を返す
func (s *TimeSlot) Remaining() int {
	if r := s.Capacity - s.Occupancy; r > 0 {
		return r
	}
	return 0
}

func (s *TimeSlot) IsFull() bool {
	return s.Occupancy >= s.Capacity
}

// IsBookable は受付中かつ開始前であるかを返す（定員は見ない）
func (s *TimeSlot) IsBookable(now time.Time) bool {
	return s.IsAvailable && now.Before(s.StartAt)
}

// HasEnded は枠の終了時刻を過ぎたかを返す
func (s *TimeSlot) HasEnded(now time.Time) bool {
	return !now.Before(s.EndAt)
}

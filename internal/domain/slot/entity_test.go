package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlot_Validate(t *testing.T) {
	start := time.Date(2026, 11, 2, 1, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		mutate  func(s *TimeSlot)
		wantErr error
	}{
		{"正常", func(s *TimeSlot) {}, nil},
		{"サービスID未指定", func(s *TimeSlot) { s.ServiceID = "" }, ErrServiceIDRequired},
		{"定員0", func(s *TimeSlot) { s.Capacity = 0 }, ErrInvalidCapacity},
		{"終了が開始以前", func(s *TimeSlot) { s.EndAt = s.StartAt }, ErrInvalidSlotTime},
		{"予約数が定員超過", func(s *TimeSlot) { s.Occupancy = 4 }, ErrInvalidCapacity},
		{"予約数が負", func(s *TimeSlot) { s.Occupancy = -1 }, ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTimeSlot("svc-1", start, start.Add(30*time.Minute), 3, start)
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), tt.wantErr)
		})
	}
}

func TestTimeSlot_RemainingAndFull(t *testing.T) {
	start := time.Date(2026, 11, 2, 1, 0, 0, 0, time.UTC)
	s := NewTimeSlot("svc-1", start, start.Add(time.Hour), 2, start)

	assert.Equal(t, 2, s.Remaining())
	assert.False(t, s.IsFull())

	s.Occupancy = 2
	assert.Equal(t, 0, s.Remaining())
	assert.True(t, s.IsFull())
}

func TestTimeSlot_IsBookableAndHasEnded(t *testing.T) {
	start := time.Date(2026, 11, 2, 1, 0, 0, 0, time.UTC)
	s := NewTimeSlot("svc-1", start, start.Add(time.Hour), 1, start)

	assert.True(t, s.IsBookable(start.Add(-time.Minute)))
	assert.False(t, s.IsBookable(start), "開始時刻ちょうどは受付不可")
	assert.False(t, s.HasEnded(start.Add(59*time.Minute)))
	assert.True(t, s.HasEnded(start.Add(time.Hour)))

	s.IsAvailable = false
	assert.False(t, s.IsBookable(start.Add(-time.Hour)))
}

func TestNewTimeSlot_UTCに正規化(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	start := time.Date(2026, 11, 2, 10, 0, 0, 0, jst)
	s := NewTimeSlot("svc-1", start, start.Add(time.Hour), 1, start)
	assert.Equal(t, time.UTC, s.StartAt.Location())
	assert.True(t, s.StartAt.Equal(start))
}

package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/slot"
)

var testAdmin = application.Actor{ID: "admin-1", Role: application.RoleAdmin}

func newSlotEcho(svc *MockSlotService) *echo.Echo {
	e := NewTestEcho()
	h := NewSlotHandler(svc)
	g := e.Group("", WithTestActor(testAdmin))
	g.GET("/services/:id/slots", h.ListByService)
	g.GET("/slots/:id", h.GetByID)
	g.POST("/admin/services/:id/slots", h.Create)
	g.POST("/admin/services/:id/slots/generate", h.Generate)
	g.POST("/admin/slots/:id/deactivate", h.Deactivate)
	g.DELETE("/admin/slots/:id", h.Delete)
	return e
}

func sampleSlot() *slot.TimeSlot {
	start := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	return &slot.TimeSlot{
		ID: "slot-1", ServiceID: "svc-1", StartAt: start, EndAt: start.Add(30 * time.Minute),
		Capacity: 3, Occupancy: 1, IsAvailable: true,
	}
}

func TestSlotHandler_ListByService(t *testing.T) {
	t.Run("日付指定はUTCの0時", func(t *testing.T) {
		svc := new(MockSlotService)
		from := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 11, 9, 0, 0, 0, 0, time.UTC)
		svc.On("ListSlots", mock.Anything, "svc-1", from, to).Return([]*slot.TimeSlot{sampleSlot()}, nil)

		rec := serve(newSlotEcho(svc), http.MethodGet, "/services/svc-1/slots?from=2026-11-02&to=2026-11-09", nil, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp []SlotResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, 2, resp[0].Remaining)
		svc.AssertExpectations(t)
	})

	t.Run("指定なしはゼロ値で渡す", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("ListSlots", mock.Anything, "svc-1", time.Time{}, time.Time{}).Return([]*slot.TimeSlot{}, nil)

		rec := serve(newSlotEcho(svc), http.MethodGet, "/services/svc-1/slots", nil, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("形式不正は400", func(t *testing.T) {
		svc := new(MockSlotService)
		rec := serve(newSlotEcho(svc), http.MethodGet, "/services/svc-1/slots?from=11/02", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("サービスがなければ404", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("ListSlots", mock.Anything, "missing", time.Time{}, time.Time{}).Return(nil, publicservice.ErrServiceNotFound)

		rec := serve(newSlotEcho(svc), http.MethodGet, "/services/missing/slots", nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "service_not_found", decodeError(t, rec).Reason)
	})
}

func TestSlotHandler_GetByID(t *testing.T) {
	svc := new(MockSlotService)
	svc.On("GetSlot", mock.Anything, "slot-1").Return(sampleSlot(), nil)
	svc.On("GetRemaining", mock.Anything, "slot-1").Return(1, nil)

	rec := serve(newSlotEcho(svc), http.MethodGet, "/slots/slot-1", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Remaining)
	svc.AssertExpectations(t)
}

func TestSlotHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"作成できる", `{"start_at":"2026-11-02T00:00:00Z","end_at":"2026-11-02T00:30:00Z","capacity":3}`, nil, http.StatusCreated},
		{"定員0は400", `{"start_at":"2026-11-02T00:00:00Z","end_at":"2026-11-02T00:30:00Z","capacity":0}`, nil, http.StatusBadRequest},
		{"開始時刻の重複は409", `{"start_at":"2026-11-02T00:00:00Z","end_at":"2026-11-02T00:30:00Z","capacity":3}`, slot.ErrSlotAlreadyExists, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSlotService)
			if tt.wantStatus != http.StatusBadRequest {
				if tt.err != nil {
					svc.On("CreateSlot", mock.Anything, mock.AnythingOfType("application.CreateSlotInput")).Return(nil, tt.err)
				} else {
					svc.On("CreateSlot", mock.Anything, mock.MatchedBy(func(in application.CreateSlotInput) bool {
						return in.ServiceID == "svc-1" && in.Capacity == 3 && in.EndAt.Sub(in.StartAt) == 30*time.Minute
					})).Return(sampleSlot(), nil)
				}
			}

			rec := serve(newSlotEcho(svc), http.MethodPost, "/admin/services/svc-1/slots", strings.NewReader(tt.body), nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestSlotHandler_Generate(t *testing.T) {
	t.Run("条件を変換して渡す", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("GenerateSlots", mock.Anything, mock.MatchedBy(func(in application.GenerateSlotsInput) bool {
			return in.ServiceID == "svc-1" &&
				in.From.Equal(time.Date(2026, 11, 9, 12, 0, 0, 0, time.UTC)) &&
				in.To.Equal(time.Date(2026, 11, 13, 12, 0, 0, 0, time.UTC)) &&
				in.DayStart == 9*time.Hour && in.DayEnd == 24*time.Hour &&
				in.SlotLength == 30*time.Minute && in.Capacity == 2 &&
				len(in.Weekdays) == 2 && in.Weekdays[0] == time.Monday && in.Weekdays[1] == time.Friday
		})).Return(&application.GenerateResult{Created: 10, Skipped: 2}, nil)

		body := `{"from":"2026-11-09","to":"2026-11-13","day_start":"09:00","day_end":"24:00","slot_minutes":30,"capacity":2,"weekdays":[1,5]}`
		rec := serve(newSlotEcho(svc), http.MethodPost, "/admin/services/svc-1/slots/generate", strings.NewReader(body), nil)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp GenerateSlotsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, GenerateSlotsResponse{Created: 10, Skipped: 2}, resp)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name string
		body string
	}{
		{"日付形式不正", `{"from":"2026/11/09","to":"2026-11-13","day_start":"09:00","day_end":"17:00","slot_minutes":30,"capacity":2}`},
		{"終了時刻形式不正", `{"from":"2026-11-09","to":"2026-11-13","day_start":"09:00","day_end":"5pm","slot_minutes":30,"capacity":2}`},
		{"曜日が範囲外", `{"from":"2026-11-09","to":"2026-11-13","day_start":"09:00","day_end":"17:00","slot_minutes":30,"capacity":2,"weekdays":[7]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSlotService)
			rec := serve(newSlotEcho(svc), http.MethodPost, "/admin/services/svc-1/slots/generate", strings.NewReader(tt.body), nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "GenerateSlots", mock.Anything, mock.Anything)
		})
	}
}

func TestSlotHandler_DeactivateAndDelete(t *testing.T) {
	t.Run("停止は204", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("DeactivateSlot", mock.Anything, "slot-1").Return(nil)
		rec := serve(newSlotEcho(svc), http.MethodPost, "/admin/slots/slot-1/deactivate", nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("予約のある枠の削除は409", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("DeleteSlot", mock.Anything, "slot-1").Return(slot.ErrSlotReferenced)
		rec := serve(newSlotEcho(svc), http.MethodDelete, "/admin/slots/slot-1", nil, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "slot_referenced", decodeError(t, rec).Reason)
	})
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"09:30", 9*time.Hour + 30*time.Minute, false},
		{"00:00", 0, false},
		{"24:00", 24 * time.Hour, false},
		{"25:00", 0, true},
		{"9時", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package slot

import "time"

// MaxGeneratedSlots は1回の一括生成で作成できる上限
const MaxGeneratedSlots = 5000

// GenerateInput は期間指定の一括生成条件
// From と To は Location における日付として扱い、両端を含む
// DayStart と DayEnd はその日の0時からの経過時間
type GenerateInput struct {
	ServiceID  string
	From       time.Time
	To         time.Time
	DayStart   time.Duration
	DayEnd     time.Duration
	SlotLength time.Duration
	Capacity   int
	Weekdays   []time.Weekday
	Location   *time.Location
}

func (in GenerateInput) validate() error {
	switch {
	case in.ServiceID == "":
		return ErrServiceIDRequired
	case in.Capacity <= 0:
		return ErrInvalidCapacity
	case in.SlotLength <= 0:
		return ErrInvalidSlotLength
	case in.DayStart < 0 || in.DayEnd > 24*time.Hour || in.DayEnd <= in.DayStart:
		return ErrInvalidDayWindow
	case in.DayEnd-in.DayStart < in.SlotLength:
		return ErrInvalidSlotLength
	case in.From.IsZero() || in.To.IsZero():
		return ErrInvalidRange
	}
	return nil
}

// Generate は条件に合う枠を開始時刻順に組み立てる
// 時間帯に収まりきらない端数の枠は作らない。永続化は呼び出し側が行う
func Generate(in GenerateInput, now time.Time) ([]*TimeSlot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	from := dateIn(in.From, loc)
	to := dateIn(in.To, loc)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	allowed := make(map[time.Weekday]bool, len(in.Weekdays))
	for _, w := range in.Weekdays {
		allowed[w] = true
	}

	var slots []*TimeSlot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if len(allowed) > 0 && !allowed[day.Weekday()] {
			continue
		}
		for off := in.DayStart; off+in.SlotLength <= in.DayEnd; off += in.SlotLength {
			start := wallClock(day, off, loc)
			end := wallClock(day, off+in.SlotLength, loc)
			slots = append(slots, NewTimeSlot(in.ServiceID, start, end, in.Capacity, now))
			if len(slots) > MaxGeneratedSlots {
				return nil, ErrTooManySlots
			}
		}
	}
	return slots, nil
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// wallClock は夏時間の切替日でも現地時刻で枠を刻む
func wallClock(day time.Time, off time.Duration, loc *time.Location) time.Time {
	h := int(off / time.Hour)
	m := int((off % time.Hour) / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc)
}

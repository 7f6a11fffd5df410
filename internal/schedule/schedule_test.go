package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    ClockTime
		wantErr bool
	}{
		{"09:00", NewClock(9, 0, 0), false},
		{"09:10:01", NewClock(9, 10, 1), false},
		{"9:05", NewClock(9, 5, 0), false},
		{" 23:59:59 ", NewClock(23, 59, 59), false},
		{"08:30:00.000000", NewClock(8, 30, 0), false},
		{"25:00", 0, true},
		{"nine", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseClock(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestClockOf_KeepsSubSecondPrecision(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 10, 0, 500, time.UTC)
	if got, want := ClockOf(now), NewClock(9, 10, 0)+500; got != want {
		t.Errorf("ClockOf = %d, want %d", got, want)
	}
}

func TestClockTime_On(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	date := time.Date(2024, 3, 4, 17, 45, 0, 0, loc)

	got := NewClock(9, 30, 0).On(date)
	want := time.Date(2024, 3, 4, 9, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("On = %v, want %v", got, want)
	}
}

func TestClockTime_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    ClockTime
		wantErr bool
	}{
		{"time.Time", time.Date(0, 1, 1, 14, 5, 6, 0, time.UTC), NewClock(14, 5, 6), false},
		{"bytes", []byte("08:00:00"), NewClock(8, 0, 0), false},
		{"string", "10:15:30", NewClock(10, 15, 30), false},
		{"nil", nil, 0, true},
		{"int", 42, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c ClockTime
			err := c.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c != tt.want {
				t.Errorf("Scan = %s, want %s", c, tt.want)
			}
		})
	}
}

func TestClockTime_Value(t *testing.T) {
	v, err := NewClock(7, 5, 9).Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != "07:05:09" {
		t.Errorf("Value = %v, want 07:05:09", v)
	}

	if _, err := ClockTime(25 * time.Hour).Value(); err == nil {
		t.Error("expected error for a clock beyond one day")
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Weekday
		wantErr bool
	}{
		{"Monday", time.Monday, false},
		{"monday", time.Monday, false},
		{"FRIDAY", time.Friday, false},
		{"tue", time.Tuesday, false},
		{" Sun ", time.Sunday, false},
		{"Mondays", 0, true},
		{"星期一", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWeekday(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeekday(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseWeekday(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

type staticSource struct {
	sessions map[time.Weekday][]Session
	err      error
}

func (s staticSource) EnrolledSessions(ctx context.Context, ownerID string, weekday time.Weekday) ([]Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]Session(nil), s.sessions[weekday]...), nil
}

// 2024-03-04 is a Monday.
func monday(h, m, s int) time.Time {
	return time.Date(2024, 3, 4, h, m, s, 0, time.UTC)
}

func TestResolver_SessionAt(t *testing.T) {
	math := Session{ID: 1, Name: "Math", Weekday: time.Monday, Start: NewClock(9, 0, 0), End: NewClock(10, 0, 0)}
	physics := Session{ID: 2, Name: "Physics", Weekday: time.Monday, Start: NewClock(13, 0, 0), End: NewClock(14, 30, 0)}
	r := NewResolver(staticSource{sessions: map[time.Weekday][]Session{
		time.Monday: {physics, math},
	}})

	tests := []struct {
		name   string
		now    time.Time
		wantID int64
	}{
		{"before first session", monday(8, 59, 59), 0},
		{"exact start", monday(9, 0, 0), 1},
		{"inside", monday(9, 30, 0), 1},
		{"exact end", monday(10, 0, 0), 1},
		{"just after end", monday(10, 0, 1), 0},
		{"afternoon", monday(13, 45, 0), 2},
		{"other weekday", time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.SessionAt(context.Background(), "S001", tt.now)
			if err != nil {
				t.Fatalf("SessionAt failed: %v", err)
			}
			var gotID int64
			if got != nil {
				gotID = got.ID
			}
			if gotID != tt.wantID {
				t.Errorf("expected session %d, got %d", tt.wantID, gotID)
			}
		})
	}
}

func TestResolver_OverlapTieBreak(t *testing.T) {
	long := Session{ID: 7, Weekday: time.Monday, Start: NewClock(9, 0, 0), End: NewClock(12, 0, 0)}
	short := Session{ID: 9, Weekday: time.Monday, Start: NewClock(9, 0, 0), End: NewClock(10, 0, 0)}
	sameAsShort := Session{ID: 3, Weekday: time.Monday, Start: NewClock(9, 0, 0), End: NewClock(10, 0, 0)}
	later := Session{ID: 1, Weekday: time.Monday, Start: NewClock(9, 30, 0), End: NewClock(11, 0, 0)}

	r := NewResolver(staticSource{sessions: map[time.Weekday][]Session{
		time.Monday: {later, long, short, sameAsShort},
	}})

	tests := []struct {
		name   string
		now    time.Time
		wantID int64
	}{
		{"equal start and end picks lower id", monday(9, 45, 0), 3},
		{"shorter overlapping session ended", monday(10, 30, 0), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.SessionAt(context.Background(), "S001", tt.now)
			if err != nil {
				t.Fatalf("SessionAt failed: %v", err)
			}
			if got == nil || got.ID != tt.wantID {
				t.Errorf("expected session %d, got %+v", tt.wantID, got)
			}
		})
	}
}

func TestResolver_SourceError(t *testing.T) {
	boom := errors.New("db down")
	r := NewResolver(staticSource{err: boom})

	if _, err := r.SessionAt(context.Background(), "S001", monday(9, 0, 0)); !errors.Is(err, boom) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}

func TestDate(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 20:00 UTC on March 3rd is already March 4th in UTC+9.
	instant := time.Date(2024, 3, 3, 20, 0, 0, 0, time.UTC).In(loc)
	if got := DateOf(instant); got != "2024-03-04" {
		t.Errorf("DateOf = %s, want 2024-03-04", got)
	}

	if _, err := ParseDate("2024-02-30"); err == nil {
		t.Error("expected error for an impossible date")
	}

	var d Date
	if err := d.Scan(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)); err != nil || d != "2024-03-04" {
		t.Errorf("Scan(time.Time) = %s, %v", d, err)
	}
	if err := d.Scan([]byte("2024-03-05")); err != nil || d != "2024-03-05" {
		t.Errorf("Scan([]byte) = %s, %v", d, err)
	}
	if err := d.Scan("2024-03-06T00:00:00Z"); err != nil || d != "2024-03-06" {
		t.Errorf("Scan(string) = %s, %v", d, err)
	}
	if _, err := Date("yesterday").Value(); err == nil {
		t.Error("expected Value error for a malformed date")
	}
}

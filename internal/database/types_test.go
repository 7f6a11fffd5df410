package database

import (
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/schedule"
)

func TestCourseSession(t *testing.T) {
	tests := []struct {
		weekday string
		want    time.Weekday
		wantErr bool
	}{
		{"Monday", time.Monday, false},
		{"friday", time.Friday, false},
		{"Sun", time.Sunday, false},
		{"Funday", 0, true},
		{"", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.weekday, func(t *testing.T) {
			c := Course{
				ID:      7,
				Name:    "Math",
				Weekday: tc.weekday,
				Start:   schedule.NewClock(9, 0, 0),
				End:     schedule.NewClock(10, 0, 0),
			}
			got, err := c.Session()
			if tc.wantErr {
				if err == nil {
					t.Errorf("Session() with weekday %q: expected error", tc.weekday)
				}
				return
			}
			if err != nil {
				t.Fatalf("Session(): %v", err)
			}
			if got.ID != 7 || got.Name != "Math" || got.Weekday != tc.want {
				t.Errorf("Session() = %+v", got)
			}
			if got.Start != c.Start || got.End != c.End {
				t.Errorf("Session() window = %s-%s, want %s-%s", got.Start, got.End, c.Start, c.End)
			}
		})
	}
}

package schedule

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

// ClockTime is a time of day measured from midnight.
type ClockTime time.Duration

// NewClock builds a ClockTime from hours, minutes and seconds.
func NewClock(hour, minute, second int) ClockTime {
	return ClockTime(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) ClockTime {
	h, m, s := t.Clock()
	return NewClock(h, m, s) + ClockTime(t.Nanosecond())
}

var clockLayouts = []string{"15:04:05", "15:04"}

// ParseClock parses "HH:MM" or "HH:MM:SS" with optional fractional seconds.
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:MM or HH:MM:SS", s)
}

// Duration returns the offset from midnight.
func (c ClockTime) Duration() time.Duration {
	return time.Duration(c)
}

// On returns the instant at this time of day on date's calendar day.
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(c))
}

func (c ClockTime) String() string {
	d := time.Duration(c)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}

// Scan reads TIME columns as returned by lib/pq (time.Time) and
// go-sql-driver/mysql ([]byte).
func (c *ClockTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*c = ClockOf(v)
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	case nil:
		return errors.New("cannot scan NULL into ClockTime")
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (c *ClockTime) scanString(s string) error {
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the clock as "HH:MM:SS".
func (c ClockTime) Value() (driver.Value, error) {
	if c < 0 || time.Duration(c) >= day {
		return nil, fmt.Errorf("time of day out of range: %v", time.Duration(c))
	}
	return c.String(), nil
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	return c.scanString(string(text))
}

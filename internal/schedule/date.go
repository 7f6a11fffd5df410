package schedule

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the calendar day format used in storage and the API.
const DateLayout = "2006-01-02"

// Date is a calendar day formatted as YYYY-MM-DD.
type Date string

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return string(d)
}

// Scan reads DATE columns; both drivers may return time.Time at UTC midnight.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date(v.Format(DateLayout))
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if _, err := time.Parse(DateLayout, string(d)); err != nil {
		return nil, fmt.Errorf("invalid date %q", string(d))
	}
	return string(d), nil
}

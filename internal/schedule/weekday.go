package schedule

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var weekdays = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 14)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		m[name] = d
		m[name[:3]] = d
	}
	return m
}()

// ParseWeekday accepts English weekday names or their three-letter
// abbreviations in any letter case.
func ParseWeekday(s string) (time.Weekday, error) {
	key := cases.Title(language.English).String(strings.TrimSpace(s))
	if d, ok := weekdays[key]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

package availability

import (
	"fmt"
	"time"
)

// Date is a calendar day with no time-of-day or location attached.
// Availability is per-night, so a bare day is the right granularity, and a
// comparable struct makes Query usable as a cache key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

var dateFormats = []string{"2006-01-02", "02/01/2006", "2006.01.02"}

// ParseDate accepts the date spellings the CLI takes: 2024-09-11,
// 11/09/2024 or 2024.09.11.
func ParseDate(s string) (Date, error) {
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD, DD/MM/YYYY or YYYY.MM.DD)", s)
}

// Time returns the day at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days later, rolling over month and year.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// String renders ISO form, e.g. 2024-09-11.
func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// Display renders the long human form used in alerts, e.g.
// "Wednesday, Sep 11, 2024".
func (d Date) Display() string {
	return d.Time().Format("Monday, Jan 2, 2006")
}

func (d Date) IsZero() bool {
	return d == Date{}
}

package utils

import "time"

// DateLayout is the wire format for calendar days ("2006-01-02").
const DateLayout = "2006-01-02"

// LocalDay returns the current calendar day in the given IANA timezone,
// truncated to midnight UTC so DATE columns compare cleanly. Unknown
// timezones fall back to UTC rather than failing the request.
func LocalDay(tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return DayOf(time.Now().In(loc))
}

// DayOf strips the time-of-day component, keeping only the calendar date in
// t's location, re-expressed at midnight UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (b - a). Both are
// compared at day granularity, so partial days never count.
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}

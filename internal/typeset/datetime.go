package typeset

import (
	"fmt"
	"time"
)

// Datetime is a calendar timestamp as seen by documents. A date-only value
// has no time of day.
type Datetime struct {
	Year   int32
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8

	hasTime bool
}

// DatetimeFromYMD builds a date. It reports false when the fields do not
// name a real calendar day.
func DatetimeFromYMD(year int32, month, day uint8) (Datetime, bool) {
	if month < 1 || month > 12 || day < 1 || int(day) > daysIn(year, month) {
		return Datetime{}, false
	}
	return Datetime{Year: year, Month: month, Day: day}, true
}

// DatetimeFromYMDHMS builds a date with a time of day.
func DatetimeFromYMDHMS(year int32, month, day, hour, minute, second uint8) (Datetime, bool) {
	d, ok := DatetimeFromYMD(year, month, day)
	if !ok || hour > 23 || minute > 59 || second > 59 {
		return Datetime{}, false
	}
	d.Hour, d.Minute, d.Second = hour, minute, second
	d.hasTime = true
	return d, true
}

// HasTime reports whether d carries a time of day.
func (d Datetime) HasTime() bool { return d.hasTime }

// WallTime returns the fields of d as a time.Time, midnight for date-only
// values. The fields are wall-clock readings in whatever offset the clock
// used, so the result's location is only a carrier: format it, never
// convert it to another zone.
func (d Datetime) WallTime() time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day),
		int(d.Hour), int(d.Minute), int(d.Second), 0, time.UTC)
}

func (d Datetime) String() string {
	if d.hasTime {
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func daysIn(year int32, month uint8) int {
	// день 0 следующего месяца = последний день текущего
	return time.Date(int(year), time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

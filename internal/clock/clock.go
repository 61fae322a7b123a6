// Package clock gives a compilation one stable notion of "now".
package clock

import (
	"math"
	"time"

	"fortio.org/safecast"

	"vellum/internal/memo"
	"vellum/internal/typeset"
)

// maxOffsetHours is the largest offset whose duration fits time.Duration.
const maxOffsetHours = int64(math.MaxInt64 / int64(time.Hour))

// Clock captures the current moment on first use and answers every later
// question from that same moment.
type Clock struct {
	now    func() time.Time
	loc    *time.Location
	moment memo.Cell[time.Time]
}

// New returns a clock reading from now; nil means time.Now.
func New(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// In makes loc the "local" zone of c instead of the host's. It must be
// called before c is shared.
func (c *Clock) In(loc *time.Location) *Clock {
	c.loc = loc
	return c
}

func (c *Clock) local(t time.Time) time.Time {
	if c.loc != nil {
		return t.In(c.loc)
	}
	return t.Local()
}

// Moment returns the captured moment, capturing it on the first call.
func (c *Clock) Moment() time.Time {
	return c.moment.GetOrInit(c.now)
}

// Now returns the moment as a local date and time. It reports false when a
// field does not fit the document datetime range.
func (c *Clock) Now() (typeset.Datetime, bool) {
	t := c.local(c.Moment())
	year, ok := conv[int32](t.Year())
	if !ok {
		return typeset.Datetime{}, false
	}
	month, ok1 := conv[uint8](int(t.Month()))
	day, ok2 := conv[uint8](t.Day())
	hour, ok3 := conv[uint8](t.Hour())
	minute, ok4 := conv[uint8](t.Minute())
	second, ok5 := conv[uint8](t.Second())
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return typeset.Datetime{}, false
	}
	return typeset.DatetimeFromYMDHMS(year, month, day, hour, minute, second)
}

// Today returns the date of the moment. A nil offset means the local date;
// otherwise the date in UTC shifted by offset hours.
func (c *Clock) Today(offset *int64) (typeset.Datetime, bool) {
	t := c.Moment()
	if offset == nil {
		t = c.local(t)
	} else {
		h := *offset
		if h > maxOffsetHours || h < -maxOffsetHours {
			return typeset.Datetime{}, false
		}
		t = t.UTC().Add(time.Duration(h) * time.Hour)
	}

	year, ok := conv[int32](t.Year())
	if !ok {
		return typeset.Datetime{}, false
	}
	month, ok1 := conv[uint8](int(t.Month()))
	day, ok2 := conv[uint8](t.Day())
	if !ok1 || !ok2 {
		return typeset.Datetime{}, false
	}
	return typeset.DatetimeFromYMD(year, month, day)
}

func conv[T int32 | uint8](v int) (T, bool) {
	out, err := safecast.Conv[T](v)
	return out, err == nil
}

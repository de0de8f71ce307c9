package cursor

import "time"

// Clock is the source of "now" for every timetable operation.
type Clock interface {
	Now() Cursor
}

// SystemClock reads the wall clock in Location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() Cursor {
	now := time.Now()
	if c.Location != nil {
		now = now.In(c.Location)
	} else {
		now = now.UTC()
	}
	return FromTime(now)
}

// FixedClock always returns the same cursor.
type FixedClock Cursor

func (c FixedClock) Now() Cursor {
	return Cursor(c)
}

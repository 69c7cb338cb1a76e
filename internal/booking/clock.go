package booking

import "time"

// Clock supplies the current time.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

func (c Clock) now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c().UTC()
}

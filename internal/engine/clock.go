package engine

import "time"

// Clock supplies the current time. Injectable so that no-show detection and
// window expiry can be tested without sleeping.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

package trigger

import "time"

// Clock supplies elapsed seconds since some fixed epoch. Values never decrease.
type Clock interface {
	Now() float64
}

// WallClock counts seconds since it was created.
type WallClock struct {
	start time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

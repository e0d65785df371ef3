package utils

import (
	"sync"
	"time"
)

// Clock hands out UTC timestamps that never go backwards, even if the wall
// clock is stepped back between calls.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) Now() time.Time {
	t := c.now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

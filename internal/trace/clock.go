package trace

import "sync/atomic"

// SeqSource hands out strictly increasing sequence numbers.
type SeqSource interface {
	Next() int64
}

// Clock is a monotonic logical clock. The first Next returns 1.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock that resumes after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

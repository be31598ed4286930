package tinyfs

import "time"

// Clock is a source of the 32-bit seconds-since-epoch timestamps stored in
// inode blocks. Injecting it, rather than calling time.Now() directly,
// keeps timestamp-ordering tests (creation time never after access/modify
// time) deterministic.
type Clock interface {
	Now() uint32
}

// SystemClock is the default Clock, backed by the host's wall clock.
type SystemClock struct{}

func (SystemClock) Now() uint32 {
	return uint32(time.Now().Unix())
}

// FixedClock is a Clock that always reports the same timestamp, advanced
// explicitly. It's meant for tests that need to control the passage of
// time without sleeping.
type FixedClock struct {
	current uint32
}

// NewFixedClock creates a FixedClock starting at the given timestamp.
func NewFixedClock(start uint32) *FixedClock {
	return &FixedClock{current: start}
}

func (c *FixedClock) Now() uint32 {
	return c.current
}

// Advance moves the clock forward by delta seconds and returns the new
// value.
func (c *FixedClock) Advance(delta uint32) uint32 {
	c.current += delta
	return c.current
}

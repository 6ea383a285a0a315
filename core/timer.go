package core

import "time"

// Clock is the time source used by the motor driver and the controller.
// Micros wraps around at 2^32; callers only ever compare differences.
type Clock interface {
	// Micros returns a free-running microsecond counter
	Micros() uint32

	// DelayMicros busy-waits for the given number of microseconds
	DelayMicros(us uint32)
}

// Elapsed returns the microseconds between two counter readings.
// Unsigned subtraction keeps the result correct across a counter wrap.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// SystemClock is a Clock backed by the Go runtime monotonic clock
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock whose counter starts at zero
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Micros returns microseconds since the clock was created, truncated to 32 bits
func (c *SystemClock) Micros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// DelayMicros spins until the requested time has passed.
// time.Sleep granularity is far coarser than the driver setup times.
func (c *SystemClock) DelayMicros(us uint32) {
	if us == 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}

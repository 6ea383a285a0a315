//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// HardwareClock implements core.Clock on the RP2040 1MHz timer
type HardwareClock struct{}

// Micros returns the low 32 bits of the microsecond counter
func (HardwareClock) Micros() uint32 {
	return timerRAWL.Get()
}

// DelayMicros busy-waits on the hardware counter
func (c HardwareClock) DelayMicros(us uint32) {
	start := c.Micros()
	for c.Micros()-start < us {
	}
}

// Uptime reads the full 64-bit counter
func (HardwareClock) Uptime() uint64 {
	// Read high, low, high to detect a rollover between the reads
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

package core

// StepPulser generates step pulses in hardware (PIO, timer peripherals).
// When a Motor has a pulser it is used instead of toggling the step pin.
type StepPulser interface {
	// Init claims the step pin for the pulser
	Init(stepPin GPIOPin, invert bool) error

	// Pulse emits one step pulse of at least widthMicros high time.
	// Must return only after the pulse has been committed to hardware.
	Pulse(widthMicros uint32)

	// GetName returns backend implementation name
	GetName() string
}

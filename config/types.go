package config

// MotorConfig represents configuration for the plunger stepper
type MotorConfig struct {
	StepPin            string // GPIO pin for step pulses
	DirPin             string // GPIO pin for direction
	EnablePin          string // GPIO pin for driver enable
	StepsPerRevolution uint16 // Full steps per revolution
	Microsteps         uint8  // Driver microstep multiplier
	ActiveLow          bool   // Step and enable lines are active low
	InvertDir          bool   // Invert direction signal
	PulseWidthUS       uint32 // Step pulse width (µs)
	DirSetupUS         uint32 // Direction setup time (µs)
}

// ProfileConfig represents the motion profile parameters
type ProfileConfig struct {
	TargetIntervalUS uint32 // Steady-state step interval (µs), 0 = derive from RPM
	RPM              uint16 // Steady-state speed used when TargetIntervalUS is 0
	AccelStepUS      uint32 // Interval decrease per step (µs)
	DecelMultiplier  uint32 // Start interval multiplier after a direction change
}

// LimitConfig represents one limit and its response.
// Limits are checked in the order they are listed.
type LimitConfig struct {
	Name      string // Diagnostic name
	Kind      string // "position", "sensor" or "distance"
	Direction string // "forward", "reverse" or "" for both
	Response  string // "none", "stop", "reverse" or "backoff"
	BackOff   int32  // Steps for the backoff response
	Homing    bool   // Marks the limit that completes homing

	// Position limits
	Threshold int32

	// Distance limits
	MaxDistance int32

	// Sensor limits
	Source      string // "gpio", "tof" or "adc"
	Pin         string // GPIO input pin
	ActiveLow   bool   // Pin reads low when triggered
	PullUp      bool   // Enable pull-up instead of pull-down
	Samples     uint8  // Consecutive samples required
	ThresholdMM uint16 // ToF trigger distance (mm)

	// Analog sensors
	Channel      uint8  // ADC channel
	Level        uint16 // Trigger level (16-bit counts)
	TriggerAbove bool   // Trigger on rising to Level instead of falling to it
	Hysteresis   uint16 // Release distance from Level
}

// MachineConfig represents the complete syringe pump configuration
type MachineConfig struct {
	Motor   MotorConfig
	Profile ProfileConfig
	Limits  []LimitConfig

	// Travel
	TargetPosition int32 // Initial target (steps)
	MinTarget      int32 // Lowest accepted target
	MaxTarget      int32 // Highest accepted target
	HomePosition   int32 // Position returned to
	MaxHomingSteps int32 // Homing fault threshold, 0 = unlimited
	MaxRPM         uint16
}

// Limit kinds
const (
	KindPosition = "position"
	KindSensor   = "sensor"
	KindDistance = "distance"
)

// Sensor sources
const (
	SourceGPIO = "gpio"
	SourceToF  = "tof"
	SourceADC  = "adc"
)

// Limit responses
const (
	ResponseNone    = "none"
	ResponseStop    = "stop"
	ResponseReverse = "reverse"
	ResponseBackOff = "backoff"
)

package core

import "fmt"

// Stepper motor driver for step/dir/enable drivers such as the TB6600 and A4988

// Direction of travel of the actuator
type Direction int8

const (
	Stopped Direction = 0
	Forward Direction = 1
	Reverse Direction = -1
)

// String returns the direction name used in host reports
func (d Direction) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Reverse:
		return "REVERSE"
	default:
		return "STOPPED"
	}
}

// Opposite returns the reverse of d; Stopped stays Stopped
func (d Direction) Opposite() Direction {
	return -d
}

// SignalLogic selects which level means "active" on the step and enable lines
type SignalLogic uint8

const (
	ActiveHigh SignalLogic = 0 // HIGH = active (PUL+, ENA+)
	ActiveLow  SignalLogic = 1 // LOW = active (PUL-, ENA-)
)

// Driver datasheet minimums (TB6600)
const (
	DefaultPulseWidthMicros = 5
	DefaultDirSetupMicros   = 20

	microsPerMinute = 60000000
)

// MotorConfig holds the wiring and timing of a motor driver
type MotorConfig struct {
	StepPin   GPIOPin
	DirPin    GPIOPin
	EnablePin GPIOPin

	StepsPerRevolution uint16 // Full steps per revolution
	Microsteps         uint8  // Microstep multiplier set on the driver

	Logic     SignalLogic // Polarity of step and enable lines
	InvertDir bool        // Swap the direction line level

	PulseWidthMicros uint32 // Step pulse high and low time
	DirSetupMicros   uint32 // Direction-to-step setup time
}

// Motor owns the step/dir/enable lines and the absolute position.
// It knows nothing about limits or motion goals.
type Motor struct {
	gpio   GPIODriver
	clock  Clock
	pulser StepPulser
	cfg    MotorConfig

	position  int32
	direction Direction
	enabled   bool
}

// NewMotor creates a motor driver; call Begin before use
func NewMotor(gpio GPIODriver, clock Clock, cfg MotorConfig) *Motor {
	if cfg.PulseWidthMicros == 0 {
		cfg.PulseWidthMicros = DefaultPulseWidthMicros
	}
	if cfg.DirSetupMicros == 0 {
		cfg.DirSetupMicros = DefaultDirSetupMicros
	}
	return &Motor{
		gpio:      gpio,
		clock:     clock,
		cfg:       cfg,
		direction: Stopped,
	}
}

// SetPulser routes step pulses through a hardware pulse generator
func (m *Motor) SetPulser(p StepPulser) {
	m.pulser = p
}

// Begin configures the control lines to their idle, disabled state
func (m *Motor) Begin() error {
	if err := m.gpio.ConfigureOutput(m.cfg.StepPin); err != nil {
		return err
	}
	if err := m.gpio.ConfigureOutput(m.cfg.DirPin); err != nil {
		return err
	}
	if err := m.gpio.ConfigureOutput(m.cfg.EnablePin); err != nil {
		return err
	}

	if m.pulser != nil {
		if err := m.pulser.Init(m.cfg.StepPin, m.cfg.Logic == ActiveLow); err != nil {
			return err
		}
	} else if err := m.gpio.SetPin(m.cfg.StepPin, m.inactiveLevel()); err != nil {
		return err
	}
	if err := m.gpio.SetPin(m.cfg.DirPin, m.dirLevel(Forward)); err != nil {
		return err
	}
	return m.gpio.SetPin(m.cfg.EnablePin, m.inactiveLevel())
}

// Enable asserts the driver enable line. The motor stays disabled if the
// line cannot be driven.
func (m *Motor) Enable() error {
	if err := m.gpio.SetPin(m.cfg.EnablePin, m.activeLevel()); err != nil {
		return fmt.Errorf("enable line: %w", err)
	}
	m.enabled = true
	return nil
}

// Disable releases the driver and forces the direction to Stopped. Stepping
// stops even when the enable line write fails; the error reports that the
// driver may still be powered.
func (m *Motor) Disable() error {
	m.enabled = false
	m.direction = Stopped
	if err := m.gpio.SetPin(m.cfg.EnablePin, m.inactiveLevel()); err != nil {
		return fmt.Errorf("disable line: %w", err)
	}
	return nil
}

// Enabled reports whether the driver is enabled
func (m *Motor) Enabled() bool {
	return m.enabled
}

// Step emits one pulse and moves the position by one step in the current direction.
// It is a no-op while disabled or stopped.
func (m *Motor) Step() {
	if !m.enabled || m.direction == Stopped {
		return
	}

	if m.pulser != nil {
		m.pulser.Pulse(m.cfg.PulseWidthMicros)
	} else {
		// Pulse writes are fire-and-forget; a dead step line shows up as lost steps
		m.gpio.SetPin(m.cfg.StepPin, m.activeLevel())
		m.clock.DelayMicros(m.cfg.PulseWidthMicros)
		m.gpio.SetPin(m.cfg.StepPin, m.inactiveLevel())
		m.clock.DelayMicros(m.cfg.PulseWidthMicros)
	}

	m.position += int32(m.direction)
}

// SetDirection changes the direction line and waits the driver setup time.
// Stopped and unchanged directions are ignored.
func (m *Motor) SetDirection(dir Direction) {
	if dir == Stopped || dir == m.direction {
		return
	}
	m.gpio.SetPin(m.cfg.DirPin, m.dirLevel(dir))
	m.direction = dir
	m.clock.DelayMicros(m.cfg.DirSetupMicros)
}

// Direction returns the current direction
func (m *Motor) Direction() Direction {
	return m.direction
}

// Position returns the current position in steps
func (m *Motor) Position() int32 {
	return m.position
}

// SetPosition overrides the position (homing bookkeeping)
func (m *Motor) SetPosition(p int32) {
	m.position = p
}

// ResetPosition makes the current position the origin
func (m *Motor) ResetPosition() {
	m.position = 0
}

// StepsPerRevolution returns full steps times the microstep multiplier
func (m *Motor) StepsPerRevolution() uint32 {
	return uint32(m.cfg.StepsPerRevolution) * uint32(m.cfg.Microsteps)
}

// StepIntervalForRPM returns the minimum step interval in microseconds for rpm.
// Returns 0 if rpm or the step resolution is zero.
func (m *Motor) StepIntervalForRPM(rpm uint16) uint32 {
	return StepInterval(m.cfg.StepsPerRevolution, m.cfg.Microsteps, rpm)
}

// StepInterval converts a speed in RPM to microseconds per step
func StepInterval(stepsPerRev uint16, microsteps uint8, rpm uint16) uint32 {
	stepsPerMinute := uint32(rpm) * uint32(stepsPerRev) * uint32(microsteps)
	if stepsPerMinute == 0 {
		return 0
	}
	return microsPerMinute / stepsPerMinute
}

func (m *Motor) activeLevel() bool {
	return m.cfg.Logic != ActiveLow
}

func (m *Motor) inactiveLevel() bool {
	return m.cfg.Logic == ActiveLow
}

// dirLevel maps a direction to the line level: forward is low unless inverted
func (m *Motor) dirLevel(dir Direction) bool {
	level := dir == Reverse
	if m.cfg.InvertDir {
		level = !level
	}
	return level
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"syringe/core"
)

// ErrInvalidConfig is wrapped by every validation error
var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig parses a JSON configuration and returns a validated MachineConfig
func LoadConfig(jsonData []byte) (*MachineConfig, error) {
	var config MachineConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *MachineConfig) {
	// Motor: 1.8° stepper at 1/16 microstepping
	if config.Motor.StepsPerRevolution == 0 {
		config.Motor.StepsPerRevolution = 200
	}
	if config.Motor.Microsteps == 0 {
		config.Motor.Microsteps = 16
	}
	if config.Motor.PulseWidthUS == 0 {
		config.Motor.PulseWidthUS = core.DefaultPulseWidthMicros
	}
	if config.Motor.DirSetupUS == 0 {
		config.Motor.DirSetupUS = core.DefaultDirSetupMicros
	}

	// Profile
	if config.Profile.TargetIntervalUS == 0 && config.Profile.RPM == 0 {
		config.Profile.RPM = 60
	}
	if config.Profile.AccelStepUS == 0 {
		config.Profile.AccelStepUS = 10
	}
	if config.Profile.DecelMultiplier == 0 {
		config.Profile.DecelMultiplier = 4
	}

	// Travel
	if config.MinTarget == 0 {
		config.MinTarget = 1
	}
	if config.MaxTarget == 0 {
		config.MaxTarget = 9999
	}
	if config.TargetPosition == 0 {
		config.TargetPosition = 3200
	}
	if config.MaxRPM == 0 {
		config.MaxRPM = 600
	}

	// Limits
	for i := range config.Limits {
		l := &config.Limits[i]
		if l.Name == "" {
			l.Name = fmt.Sprintf("limit%d", i)
		}
		if l.Response == "" {
			l.Response = ResponseStop
		}
		if l.Kind == KindSensor && l.Source == "" {
			l.Source = SourceGPIO
		}
		if l.Samples == 0 {
			l.Samples = 1
		}
	}
}

// DefaultSyringeConfig returns the configuration of the reference rig:
// a homing switch on gpio5 and a soft travel limit.
func DefaultSyringeConfig() *MachineConfig {
	config := &MachineConfig{
		Motor: MotorConfig{
			StepPin:            "gpio2",
			DirPin:             "gpio3",
			EnablePin:          "gpio4",
			StepsPerRevolution: 200,
			Microsteps:         16,
			ActiveLow:          true,
		},
		Profile: ProfileConfig{
			RPM:             60,
			AccelStepUS:     10,
			DecelMultiplier: 4,
		},
		Limits: []LimitConfig{
			{
				Name:      "home",
				Kind:      KindSensor,
				Source:    SourceGPIO,
				Direction: "reverse",
				Response:  ResponseStop,
				Pin:       "gpio5",
				ActiveLow: true,
				PullUp:    true,
				Samples:   3,
				Homing:    true,
			},
			{
				Name:      "travel",
				Kind:      KindPosition,
				Direction: "forward",
				Response:  ResponseStop,
				Threshold: 10000,
			},
		},
		TargetPosition: 3200,
		MinTarget:      1,
		MaxTarget:      9999,
		MaxHomingSteps: 20000,
		MaxRPM:         600,
	}
	applyDefaults(config)
	return config
}

// Validate reports the first invalid setting
func (c *MachineConfig) Validate() error {
	if _, err := c.CoreMotor(); err != nil {
		return err
	}
	if c.Motor.StepsPerRevolution == 0 || c.Motor.Microsteps == 0 {
		return fmt.Errorf("%w: motor steps per revolution and microsteps must be set", ErrInvalidConfig)
	}
	if c.MinTarget < 1 || c.MinTarget > c.MaxTarget {
		return fmt.Errorf("%w: target range [%d, %d]", ErrInvalidConfig, c.MinTarget, c.MaxTarget)
	}
	if c.TargetPosition < c.MinTarget || c.TargetPosition > c.MaxTarget {
		return fmt.Errorf("%w: target %d outside [%d, %d]", ErrInvalidConfig, c.TargetPosition, c.MinTarget, c.MaxTarget)
	}
	if c.HomePosition >= c.MinTarget {
		return fmt.Errorf("%w: home position %d must lie below the target range [%d, %d]", ErrInvalidConfig, c.HomePosition, c.MinTarget, c.MaxTarget)
	}
	if c.Profile.RPM > c.MaxRPM {
		return fmt.Errorf("%w: profile rpm %d above max %d", ErrInvalidConfig, c.Profile.RPM, c.MaxRPM)
	}
	if len(c.Limits) > core.MaxLimits {
		return fmt.Errorf("%w: %d limits, at most %d supported", ErrInvalidConfig, len(c.Limits), core.MaxLimits)
	}

	names := make(map[string]bool, len(c.Limits))
	homing := 0
	for _, l := range c.Limits {
		if names[l.Name] {
			return fmt.Errorf("%w: duplicate limit %q", ErrInvalidConfig, l.Name)
		}
		names[l.Name] = true
		if l.Homing {
			homing++
		}
		if err := l.validate(); err != nil {
			return err
		}
	}
	if homing != 1 {
		return fmt.Errorf("%w: exactly one homing limit required, found %d", ErrInvalidConfig, homing)
	}
	return nil
}

func (l LimitConfig) validate() error {
	if _, err := ParseDirection(l.Direction); err != nil {
		return fmt.Errorf("limit %s: %w", l.Name, err)
	}
	if _, err := l.CoreResponse(); err != nil {
		return fmt.Errorf("limit %s: %w", l.Name, err)
	}

	switch l.Kind {
	case KindPosition:
	case KindDistance:
		if l.MaxDistance <= 0 {
			return fmt.Errorf("%w: limit %s: max distance must be positive", ErrInvalidConfig, l.Name)
		}
	case KindSensor:
		switch l.Source {
		case SourceGPIO:
			if _, err := core.LookupPin(l.Pin); err != nil {
				return fmt.Errorf("%w: limit %s: %w", ErrInvalidConfig, l.Name, err)
			}
		case SourceToF:
			if l.ThresholdMM == 0 {
				return fmt.Errorf("%w: limit %s: tof threshold must be set", ErrInvalidConfig, l.Name)
			}
		case SourceADC:
			if l.Level == 0 && l.TriggerAbove {
				return fmt.Errorf("%w: limit %s: adc level must be set", ErrInvalidConfig, l.Name)
			}
		default:
			return fmt.Errorf("%w: limit %s: unknown sensor source %q", ErrInvalidConfig, l.Name, l.Source)
		}
	default:
		return fmt.Errorf("%w: limit %s: unknown kind %q", ErrInvalidConfig, l.Name, l.Kind)
	}
	return nil
}

// ParseDirection maps "forward", "reverse" or "" (both) to a direction filter
func ParseDirection(s string) (core.Direction, error) {
	switch strings.ToLower(s) {
	case "", "both", "any":
		return core.Stopped, nil
	case "forward", "fwd":
		return core.Forward, nil
	case "reverse", "rev":
		return core.Reverse, nil
	}
	return core.Stopped, fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, s)
}

// CoreResponse converts the configured response
func (l LimitConfig) CoreResponse() (core.Response, error) {
	switch strings.ToLower(l.Response) {
	case ResponseNone:
		return core.NoAction(), nil
	case ResponseStop:
		return core.StopMotion(), nil
	case ResponseReverse:
		return core.ReverseMotion(), nil
	case ResponseBackOff:
		if l.BackOff <= 0 {
			return core.Response{}, fmt.Errorf("%w: backoff distance must be positive", ErrInvalidConfig)
		}
		return core.BackOff(l.BackOff), nil
	}
	return core.Response{}, fmt.Errorf("%w: unknown response %q", ErrInvalidConfig, l.Response)
}

// CoreMotor resolves pin names into a core.MotorConfig
func (c *MachineConfig) CoreMotor() (core.MotorConfig, error) {
	var pins [3]core.GPIOPin
	for i, name := range []string{c.Motor.StepPin, c.Motor.DirPin, c.Motor.EnablePin} {
		pin, err := core.LookupPin(name)
		if err != nil {
			return core.MotorConfig{}, fmt.Errorf("%w: motor: %w", ErrInvalidConfig, err)
		}
		pins[i] = pin
	}

	logic := core.ActiveHigh
	if c.Motor.ActiveLow {
		logic = core.ActiveLow
	}

	return core.MotorConfig{
		StepPin:            pins[0],
		DirPin:             pins[1],
		EnablePin:          pins[2],
		StepsPerRevolution: c.Motor.StepsPerRevolution,
		Microsteps:         c.Motor.Microsteps,
		Logic:              logic,
		InvertDir:          c.Motor.InvertDir,
		PulseWidthMicros:   c.Motor.PulseWidthUS,
		DirSetupMicros:     c.Motor.DirSetupUS,
	}, nil
}

// CoreController returns the controller parameters
func (c *MachineConfig) CoreController() core.ControllerConfig {
	cfg := core.ControllerConfig{
		TargetPosition: c.TargetPosition,
		MinTarget:      c.MinTarget,
		MaxTarget:      c.MaxTarget,
		HomePosition:   c.HomePosition,
		MaxHomingSteps: c.MaxHomingSteps,
		MaxRPM:         c.MaxRPM,
	}
	for _, l := range c.Limits {
		if l.Homing {
			cfg.HomingLimit = l.Name
			break
		}
	}
	return cfg
}

// ProfileInterval returns the steady-state step interval in µs
func (c *MachineConfig) ProfileInterval() uint32 {
	if c.Profile.TargetIntervalUS != 0 {
		return c.Profile.TargetIntervalUS
	}
	return core.StepInterval(c.Motor.StepsPerRevolution, c.Motor.Microsteps, c.Profile.RPM)
}

// Homing and limit sensors: mechanical switches, hall effect and optical sensors
package core

// Sensor is a boolean hardware input as seen by a SensorLimit.
// Active already accounts for polarity and oversampling.
type Sensor interface {
	Active() bool
}

// PinSensor reads a GPIO input. It reports active only after SampleCount
// consecutive reads at the trigger level, which filters switch bounce.
type PinSensor struct {
	gpio        GPIODriver
	pin         GPIOPin
	activeHigh  bool  // Expected pin state when triggered
	sampleCount uint8 // Consecutive samples required
	triggered   uint8 // Consecutive samples seen so far
}

// PinSensorConfig describes a GPIO sensor
type PinSensorConfig struct {
	Pin         GPIOPin
	ActiveLow   bool  // Pin reads low when triggered (switch to ground)
	PullUp      bool  // Enable the internal pull-up instead of pull-down
	SampleCount uint8 // Consecutive samples required, 0 = 1
}

// NewPinSensor configures the pin as an input and returns the sensor
func NewPinSensor(gpio GPIODriver, cfg PinSensorConfig) (*PinSensor, error) {
	var err error
	if cfg.PullUp {
		err = gpio.ConfigureInputPullUp(cfg.Pin)
	} else {
		err = gpio.ConfigureInputPullDown(cfg.Pin)
	}
	if err != nil {
		return nil, err
	}

	count := cfg.SampleCount
	if count == 0 {
		count = 1
	}

	return &PinSensor{
		gpio:        gpio,
		pin:         cfg.Pin,
		activeHigh:  !cfg.ActiveLow,
		sampleCount: count,
	}, nil
}

// Active takes one sample and reports whether the trigger has been confirmed
func (s *PinSensor) Active() bool {
	if s.gpio.ReadPin(s.pin) != s.activeHigh {
		s.triggered = 0
		return false
	}
	if s.triggered < s.sampleCount {
		s.triggered++
	}
	return s.triggered >= s.sampleCount
}

// Reset discards the samples collected so far
func (s *PinSensor) Reset() {
	s.triggered = 0
}

// Pin returns the input pin
func (s *PinSensor) Pin() GPIOPin {
	return s.pin
}

// Analog sensors: force, pressure and hall effect sensors read through an ADC
package core

// AnalogSensorConfig describes a threshold on an ADC channel
type AnalogSensorConfig struct {
	Channel      ADCChannel
	Threshold    uint16 // Trigger level in 16-bit ADC counts
	TriggerAbove bool   // Trigger when the value rises to the threshold, else when it falls to it
	Hysteresis   uint16 // Distance back past the threshold before the trigger releases
	SampleCount  uint8  // Consecutive samples required, 0 = 1
}

// AnalogSensor reports active while the reading is past its threshold.
// Once active it stays active until the reading moves Hysteresis counts
// back, which keeps a noisy signal from chattering around the threshold.
type AnalogSensor struct {
	adc ADCDriver
	cfg AnalogSensorConfig

	triggered uint8 // Consecutive samples past the threshold
	active    bool
	last      uint16
}

// NewAnalogSensor configures the channel and returns the sensor
func NewAnalogSensor(adc ADCDriver, cfg AnalogSensorConfig) (*AnalogSensor, error) {
	if cfg.SampleCount == 0 {
		cfg.SampleCount = 1
	}
	if err := adc.ConfigureChannel(cfg.Channel); err != nil {
		return nil, err
	}
	return &AnalogSensor{adc: adc, cfg: cfg}, nil
}

// Active samples the channel. A failed read keeps the previous state.
func (s *AnalogSensor) Active() bool {
	v, err := s.adc.ReadRaw(s.cfg.Channel)
	if err != nil {
		return s.active
	}
	s.last = v

	if s.active {
		if !s.past(v, s.releaseLevel()) {
			s.active = false
			s.triggered = 0
		}
		return s.active
	}

	if !s.past(v, s.cfg.Threshold) {
		s.triggered = 0
		return false
	}
	if s.triggered < s.cfg.SampleCount {
		s.triggered++
	}
	s.active = s.triggered >= s.cfg.SampleCount
	return s.active
}

// Reset clears the trigger and the sample counter
func (s *AnalogSensor) Reset() {
	s.active = false
	s.triggered = 0
}

// Value returns the last successful reading
func (s *AnalogSensor) Value() uint16 {
	return s.last
}

func (s *AnalogSensor) past(v, level uint16) bool {
	if s.cfg.TriggerAbove {
		return v >= level
	}
	return v <= level
}

// releaseLevel is the threshold moved back by the hysteresis, saturating
func (s *AnalogSensor) releaseLevel() uint16 {
	t, h := uint32(s.cfg.Threshold), uint32(s.cfg.Hysteresis)
	if s.cfg.TriggerAbove {
		if h > t {
			return 0
		}
		return uint16(t - h)
	}
	if t+h > 0xFFFF {
		return 0xFFFF
	}
	return uint16(t + h)
}

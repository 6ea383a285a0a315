// Time-of-flight position sensor (VL53L1X) used as a homing or occlusion sensor
package core

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/vl53l1x"
)

// VL53L1X reports large values when nothing is in range
const tofOutOfRange = 8190

// ErrToFNotResponding is returned when the sensor does not answer on the bus
var ErrToFNotResponding = errors.New("vl53l1x: sensor not responding")

// ToFSensorConfig describes a VL53L1X sensor
type ToFSensorConfig struct {
	ThresholdMM    uint16 // Active when the measured distance is at or below this
	TimingBudgetUS uint32 // Measurement timing budget (µs), 0 = 50000
	PeriodMS       uint32 // Continuous ranging period (ms), 0 = 50
	Use2V8         bool   // 2.8V I/O mode
}

// rangeReader is the part of the VL53L1X driver the sensor polls
type rangeReader interface {
	Read(blocking bool) uint16
}

// ToFSensor is a Sensor backed by a distance measurement.
// Reads never block: between measurements the last distance is reused.
type ToFSensor struct {
	dev       rangeReader
	threshold uint16
	lastMM    uint16
}

// NewToFSensor configures a VL53L1X on bus and starts continuous ranging
func NewToFSensor(bus drivers.I2C, cfg ToFSensorConfig) (*ToFSensor, error) {
	budget := cfg.TimingBudgetUS
	if budget == 0 {
		budget = 50000
	}
	period := cfg.PeriodMS
	if period == 0 {
		period = 50
	}

	dev := vl53l1x.New(bus)
	if !dev.Configure(cfg.Use2V8) {
		return nil, ErrToFNotResponding
	}
	dev.SetMeasurementTimingBudget(budget)
	dev.StartContinuous(period)

	return newToFSensor(&dev, cfg.ThresholdMM), nil
}

func newToFSensor(dev rangeReader, threshold uint16) *ToFSensor {
	return &ToFSensor{
		dev:       dev,
		threshold: threshold,
		lastMM:    tofOutOfRange,
	}
}

// Active polls for a new measurement and compares it with the threshold
func (s *ToFSensor) Active() bool {
	if mm := s.dev.Read(false); mm != 0 {
		if mm > tofOutOfRange {
			mm = tofOutOfRange
		}
		s.lastMM = mm
	}
	return s.lastMM <= s.threshold
}

// Reset forgets the last measurement
func (s *ToFSensor) Reset() {
	s.lastMM = tofOutOfRange
}

// DistanceMM returns the last measured distance
func (s *ToFSensor) DistanceMM() uint16 {
	return s.lastMM
}

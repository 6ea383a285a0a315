//go:build rp2040

package main

import (
	"errors"
	"machine"

	"syringe/config"
)

// tofBusFrequency is the VL53L1X fast-mode rate
const tofBusFrequency = 400 * machine.KHz

// configureI2C initializes an I2C bus on its default pins.
// I2C0: SDA=GP4, SCL=GP5. I2C1: SDA=GP6, SCL=GP7.
func configureI2C(bus uint8, frequencyHz uint32) (*machine.I2C, error) {
	var i2c *machine.I2C
	switch bus {
	case 0:
		i2c = machine.I2C0
	case 1:
		i2c = machine.I2C1
	default:
		return nil, errors.New("unsupported I2C bus ID")
	}

	if err := i2c.Configure(machine.I2CConfig{Frequency: frequencyHz}); err != nil {
		return nil, err
	}
	return i2c, nil
}

// needsI2C reports whether any configured limit reads a ToF sensor
func needsI2C(cfg *config.MachineConfig) bool {
	for _, l := range cfg.Limits {
		if l.Kind == config.KindSensor && l.Source == config.SourceToF {
			return true
		}
	}
	return false
}

//go:build rp2040

package main

import (
	"errors"
	"machine"

	"syringe/core"
)

var errADCChannel = errors.New("unsupported ADC channel")

// RPAdcDriver implements core.ADCDriver on the RP2040 ADC.
// Channels 0-3 are GPIO26-GPIO29.
type RPAdcDriver struct {
	channels map[core.ADCChannel]machine.ADC
}

// NewRPAdcDriver powers up the ADC block
func NewRPAdcDriver() *RPAdcDriver {
	machine.InitADC()
	return &RPAdcDriver{channels: make(map[core.ADCChannel]machine.ADC)}
}

// ConfigureChannel sets the channel's pin to analog mode
func (d *RPAdcDriver) ConfigureChannel(ch core.ADCChannel) error {
	var pin machine.Pin
	switch ch {
	case 0:
		pin = machine.ADC0
	case 1:
		pin = machine.ADC1
	case 2:
		pin = machine.ADC2
	case 3:
		pin = machine.ADC3
	default:
		return errADCChannel
	}

	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	d.channels[ch] = adc
	return nil
}

// ReadRaw returns a one-shot sample scaled to 16 bits
func (d *RPAdcDriver) ReadRaw(ch core.ADCChannel) (uint16, error) {
	adc, ok := d.channels[ch]
	if !ok {
		return 0, errADCChannel
	}
	return adc.Get(), nil
}

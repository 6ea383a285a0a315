//go:build rp2040

package main

import (
	"errors"
	"machine"

	"syringe/core"
)

// RP2040 exposes GPIO0-GPIO29
const pinCount = 30

var errPinRange = errors.New("pin out of range")

// RPGPIODriver implements core.GPIODriver on TinyGo's machine package
type RPGPIODriver struct {
	configured uint32 // bit n set once GPIOn was configured
}

func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	if pin >= pinCount {
		return errPinRange
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: mode})
	d.configured |= 1 << pin
	return nil
}

func (d *RPGPIODriver) isConfigured(pin core.GPIOPin) bool {
	return pin < pinCount && d.configured&(1<<pin) != 0
}

func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPulldown)
}

// SetPin drives an output, configuring the pin on first use
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if !d.isConfigured(pin) {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
	}
	machine.Pin(pin).Set(value)
	return nil
}

// ReadPin reads the current pin state; unconfigured pins read low
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	if !d.isConfigured(pin) {
		return false
	}
	return machine.Pin(pin).Get()
}

// Package gpio drives the syringe rig from a Linux board through periph.io
package gpio

import (
	"fmt"
	"strconv"
	"sync"

	periphgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"syringe/core"
)

// Driver implements core.GPIODriver on top of the periph pin registry.
// Pin n maps to the periph pin named "GPIOn".
type Driver struct {
	mu   sync.Mutex
	pins map[core.GPIOPin]periphgpio.PinIO
}

// Open initializes the periph host drivers and returns a GPIO driver
func Open() (*Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	return NewDriver(), nil
}

// NewDriver returns a driver over the already initialized pin registry
func NewDriver() *Driver {
	return &Driver{
		pins: make(map[core.GPIOPin]periphgpio.PinIO),
	}
}

// PinName returns the periph name of pin
func PinName(pin core.GPIOPin) string {
	return "GPIO" + strconv.Itoa(int(pin))
}

func (d *Driver) pin(pin core.GPIOPin) (periphgpio.PinIO, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pins[pin]; ok {
		return p, nil
	}
	p := gpioreg.ByName(PinName(pin))
	if p == nil {
		return nil, fmt.Errorf("%w: %s not found", core.ErrInvalidPin, PinName(pin))
	}
	d.pins[pin] = p
	return p, nil
}

// ConfigureOutput configures the pin as an output driven low
func (d *Driver) ConfigureOutput(pin core.GPIOPin) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	return p.Out(periphgpio.Low)
}

// ConfigureInputPullUp configures the pin as an input with pull-up
func (d *Driver) ConfigureInputPullUp(pin core.GPIOPin) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	return p.In(periphgpio.PullUp, periphgpio.NoEdge)
}

// ConfigureInputPullDown configures the pin as an input with pull-down
func (d *Driver) ConfigureInputPullDown(pin core.GPIOPin) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	return p.In(periphgpio.PullDown, periphgpio.NoEdge)
}

// SetPin drives a configured output
func (d *Driver) SetPin(pin core.GPIOPin, value bool) error {
	p, err := d.pin(pin)
	if err != nil {
		return err
	}
	return p.Out(periphgpio.Level(value))
}

// ReadPin samples an input; unknown pins read low
func (d *Driver) ReadPin(pin core.GPIOPin) bool {
	p, err := d.pin(pin)
	if err != nil {
		return false
	}
	return p.Read() == periphgpio.High
}

// Halt releases every pin the driver touched
func (d *Driver) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var first error
	for _, p := range d.pins {
		if err := p.Halt(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenI2C opens an I2C bus by name ("" for the first one).
// The returned bus satisfies the tinygo drivers.I2C interface.
func OpenI2C(name string) (i2c.BusCloser, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", name, err)
	}
	return bus, nil
}

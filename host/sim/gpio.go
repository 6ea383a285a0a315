// Package sim provides an in-memory syringe rig for tests and the host simulator
package sim

import (
	"sync"

	"syringe/core"
)

// Clock is a virtual microsecond clock. Delays advance it instantly.
type Clock struct {
	mu  sync.Mutex
	now uint32
}

// NewClock creates a clock starting at start
func NewClock(start uint32) *Clock {
	return &Clock{now: start}
}

// Micros returns the virtual time
func (c *Clock) Micros() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// DelayMicros advances the virtual time
func (c *Clock) DelayMicros(us uint32) {
	c.Advance(us)
}

// Advance moves the virtual time forward
func (c *Clock) Advance(us uint32) {
	c.mu.Lock()
	c.now += us
	c.mu.Unlock()
}

// WriteHook observes output writes
type WriteHook func(pin core.GPIOPin, value bool)

// GPIO is an in-memory core.GPIODriver
type GPIO struct {
	mu      sync.Mutex
	levels  map[core.GPIOPin]bool
	outputs map[core.GPIOPin]bool
	hooks   []WriteHook
}

// NewGPIO creates a GPIO bank with every pin low
func NewGPIO() *GPIO {
	return &GPIO{
		levels:  make(map[core.GPIOPin]bool),
		outputs: make(map[core.GPIOPin]bool),
	}
}

// OnWrite registers a hook called after every SetPin
func (g *GPIO) OnWrite(h WriteHook) {
	g.mu.Lock()
	g.hooks = append(g.hooks, h)
	g.mu.Unlock()
}

// ConfigureOutput marks the pin as an output
func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[pin] = true
	return nil
}

// ConfigureInputPullUp makes an unconnected input read high
func (g *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, driven := g.levels[pin]; !driven {
		g.levels[pin] = true
	}
	return nil
}

// ConfigureInputPullDown makes an unconnected input read low
func (g *GPIO) ConfigureInputPullDown(pin core.GPIOPin) error {
	return nil
}

// SetPin drives an output and notifies the hooks
func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	g.levels[pin] = value
	hooks := g.hooks
	g.mu.Unlock()

	for _, h := range hooks {
		h(pin, value)
	}
	return nil
}

// ReadPin returns the pin level
func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.levels[pin]
}

// Drive sets an input level from the outside world
func (g *GPIO) Drive(pin core.GPIOPin, level bool) {
	g.mu.Lock()
	g.levels[pin] = level
	g.mu.Unlock()
}

// IsOutput reports whether the pin was configured as an output
func (g *GPIO) IsOutput(pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outputs[pin]
}

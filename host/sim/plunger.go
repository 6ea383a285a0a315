package sim

import (
	"sync"

	"syringe/core"
)

// PlungerConfig describes the simulated mechanics and wiring
type PlungerConfig struct {
	Motor core.MotorConfig

	SensorPin       core.GPIOPin
	SensorActiveLow bool

	Start     int32 // Physical position at power-up (steps)
	SwitchAt  int32 // Home switch closes at or below this position
	TravelMax int32 // Mechanical travel [0, TravelMax]; steps beyond are lost, 0 = unbounded
}

// Plunger follows the step/dir/enable lines of a GPIO bank and drives
// the home switch input from its physical position.
type Plunger struct {
	mu       sync.Mutex
	gpio     *GPIO
	cfg      PlungerConfig
	position int32
	steps    uint32
	lost     uint32
	enabled  bool
	reverse  bool
}

// NewPlunger attaches a plunger model to gpio
func NewPlunger(gpio *GPIO, cfg PlungerConfig) *Plunger {
	p := &Plunger{
		gpio:     gpio,
		cfg:      cfg,
		position: cfg.Start,
	}
	gpio.OnWrite(p.onWrite)
	p.updateSwitch()
	return p
}

func (p *Plunger) onWrite(pin core.GPIOPin, value bool) {
	p.mu.Lock()
	activeHigh := p.cfg.Motor.Logic != core.ActiveLow

	switch pin {
	case p.cfg.Motor.EnablePin:
		p.enabled = value == activeHigh
	case p.cfg.Motor.DirPin:
		p.reverse = value != p.cfg.Motor.InvertDir
	case p.cfg.Motor.StepPin:
		if value == activeHigh && p.enabled {
			p.step()
		}
	}
	p.mu.Unlock()

	p.updateSwitch()
}

func (p *Plunger) step() {
	p.steps++
	next := p.position + 1
	if p.reverse {
		next = p.position - 1
	}
	if p.cfg.TravelMax > 0 && (next < 0 || next > p.cfg.TravelMax) {
		p.lost++
		return
	}
	p.position = next
}

func (p *Plunger) updateSwitch() {
	p.mu.Lock()
	closed := p.position <= p.cfg.SwitchAt
	p.mu.Unlock()

	level := closed
	if p.cfg.SensorActiveLow {
		level = !closed
	}
	p.gpio.Drive(p.cfg.SensorPin, level)
}

// Position returns the physical position in steps
func (p *Plunger) Position() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Steps returns the number of step pulses seen while enabled
func (p *Plunger) Steps() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.steps
}

// Lost returns the number of steps absorbed by the mechanical end stops
func (p *Plunger) Lost() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lost
}

// Enabled reports whether the driver enable line is asserted
func (p *Plunger) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

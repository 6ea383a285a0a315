package sim

import (
	"errors"

	"syringe/config"
	"syringe/core"
)

// Rig is a simulated syringe pump: GPIO bank, ADC, virtual clock and plunger
type Rig struct {
	GPIO    *GPIO
	ADC     *ADC
	Clock   *Clock
	Plunger *Plunger
}

// NewRig builds a rig wired as described by cfg. The home switch is
// attached to the pin of the configured homing limit.
func NewRig(cfg *config.MachineConfig, start int32) (*Rig, error) {
	motor, err := cfg.CoreMotor()
	if err != nil {
		return nil, err
	}

	var home *config.LimitConfig
	for i := range cfg.Limits {
		if cfg.Limits[i].Homing {
			home = &cfg.Limits[i]
		}
	}
	if home == nil || home.Kind != config.KindSensor || home.Source != config.SourceGPIO {
		return nil, errors.New("sim: homing limit must be a gpio sensor")
	}
	pin, err := core.LookupPin(home.Pin)
	if err != nil {
		return nil, err
	}

	gpio := NewGPIO()
	return &Rig{
		GPIO:  gpio,
		ADC:   NewADC(),
		Clock: NewClock(0),
		Plunger: NewPlunger(gpio, PlungerConfig{
			Motor:           motor,
			SensorPin:       pin,
			SensorActiveLow: home.ActiveLow,
			Start:           start,
		}),
	}, nil
}

// Updater is advanced by Run, typically a console.Manager or core.Controller
type Updater interface {
	Update()
}

// Run advances virtual time in tickUS increments, updating u after each
// tick, until done reports true. Returns false if maxTicks ran out.
func (r *Rig) Run(u Updater, tickUS uint32, maxTicks int, done func() bool) bool {
	for i := 0; i < maxTicks; i++ {
		if done() {
			return true
		}
		r.Clock.Advance(tickUS)
		u.Update()
	}
	return done()
}

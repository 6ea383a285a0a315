package core

import (
	"errors"
	"strconv"
	"strings"
)

// GPIOPin is a hardware pin number as the target numbers it
type GPIOPin uint32

// GPIODriver drives and samples the step, direction, enable and sensor
// pins. Targets supply an implementation; tests use a recording fake.
type GPIODriver interface {
	ConfigureOutput(pin GPIOPin) error
	ConfigureInputPullUp(pin GPIOPin) error
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin drives an output high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// ReadPin samples the raw electrical level; polarity is applied by the caller
	ReadPin(pin GPIOPin) bool
}

// ErrInvalidPin is returned when a pin name cannot be resolved
var ErrInvalidPin = errors.New("invalid pin name")

// LookupPin resolves a configuration pin name ("gpio17", "GPIO17" or "17") to a pin number
func LookupPin(name string) (GPIOPin, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "gpio")
	if s == "" {
		return 0, ErrInvalidPin
	}

	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, errors.Join(ErrInvalidPin, err)
	}
	return GPIOPin(n), nil
}

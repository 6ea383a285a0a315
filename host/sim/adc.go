package sim

import (
	"errors"
	"sync"

	"syringe/core"
)

// ErrChannelNotConfigured is returned when reading a channel before ConfigureChannel
var ErrChannelNotConfigured = errors.New("adc channel not configured")

// ADC is an in-memory core.ADCDriver. Channels read a fixed value or a
// source function, e.g. a pressure model fed by the plunger position.
type ADC struct {
	mu         sync.Mutex
	configured map[core.ADCChannel]bool
	values     map[core.ADCChannel]uint16
	sources    map[core.ADCChannel]func() uint16
}

// NewADC creates an ADC with every channel reading zero
func NewADC() *ADC {
	return &ADC{
		configured: make(map[core.ADCChannel]bool),
		values:     make(map[core.ADCChannel]uint16),
		sources:    make(map[core.ADCChannel]func() uint16),
	}
}

// ConfigureChannel marks ch as an analog input
func (a *ADC) ConfigureChannel(ch core.ADCChannel) error {
	a.mu.Lock()
	a.configured[ch] = true
	a.mu.Unlock()
	return nil
}

// ReadRaw returns the channel's source value, or its fixed value
func (a *ADC) ReadRaw(ch core.ADCChannel) (uint16, error) {
	a.mu.Lock()
	if !a.configured[ch] {
		a.mu.Unlock()
		return 0, ErrChannelNotConfigured
	}
	src, v := a.sources[ch], a.values[ch]
	a.mu.Unlock()

	// Sources may lock other parts of the rig
	if src != nil {
		return src(), nil
	}
	return v, nil
}

// Set fixes the reading of ch and removes any source
func (a *ADC) Set(ch core.ADCChannel, v uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[ch] = v
	delete(a.sources, ch)
}

// SetSource computes the reading of ch on every read
func (a *ADC) SetSource(ch core.ADCChannel, src func() uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sources[ch] = src
}

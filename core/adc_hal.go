package core

// ADCChannel identifies an analog input channel
type ADCChannel uint8

// ADCDriver is the abstract ADC interface that core code uses.
// Readings are scaled to 16 bits whatever the hardware resolution.
type ADCDriver interface {
	// ConfigureChannel prepares a channel for analog input.
	// For pin-muxed channels, this should set the pin to analog mode.
	ConfigureChannel(ch ADCChannel) error

	// ReadRaw performs a one-shot sample from the given channel
	ReadRaw(ch ADCChannel) (uint16, error)
}

//go:build rp2040

package main

import (
	"machine"
	"time"

	"syringe/config"
	"syringe/console"
)

// Step pulses come from PIO0 state machine 0
const (
	stepperPIO = 0
	stepperSM  = 0
)

// heartbeatPeriod toggles the LED while the loop is alive
const heartbeatPeriod = 500_000 // us

// panics recovered in the main loop
var loopPanics uint32

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	usb := newUSBConsole()
	clock := HardwareClock{}

	cfg := config.DefaultSyringeConfig()
	manager, err := console.NewManagerWithConfig(cfg)
	if err != nil {
		blinkForever(100 * time.Millisecond)
	}

	pulser := NewPIOPulser(stepperPIO, stepperSM)
	hw := console.Hardware{
		GPIO:   NewRPGPIODriver(),
		Clock:  clock,
		ADC:    NewRPAdcDriver(),
		Pulser: pulser,
	}
	if needsI2C(cfg) {
		bus, err := configureI2C(0, tofBusFrequency)
		if err != nil {
			blinkForever(100 * time.Millisecond)
		}
		hw.I2C = bus
	}

	if err := manager.Initialize(hw); err != nil {
		blinkForever(100 * time.Millisecond)
	}
	if err := manager.Start(); err != nil {
		blinkForever(100 * time.Millisecond)
	}

	// Flash LED 3 times to indicate the controller started
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(200 * time.Millisecond)
		led.Low()
		time.Sleep(200 * time.Millisecond)
	}

	var nextBeat uint64
	ledOn := false
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					pulser.Stop()
					manager.EmergencyStop()
				}
			}()

			usb.feed(manager)
			manager.Update()
			usb.write(manager.GetOutput())

			if now := clock.Uptime(); now >= nextBeat {
				ledOn = !ledOn
				led.Set(ledOn)
				nextBeat = now + heartbeatPeriod
			}
		}()
	}
}

// blinkForever signals a fatal setup error on the LED
func blinkForever(period time.Duration) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(period)
		led.Low()
		time.Sleep(period)
	}
}

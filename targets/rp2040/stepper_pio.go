//go:build rp2040

package main

// PIO step pulse generator using the tinygo-org/pio package.
// Pulse timing is hardware-clocked, independent of the main loop.

import (
	"errors"
	"machine"
	"strconv"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"syringe/core"
)

// Command word format:
//
//	Bits 0-15:  high time in PIO cycles, minus one
//	Bits 16-31: low time in PIO cycles, minus one
//
// The state machine runs at 1MHz, so one cycle is one microsecond.
func buildPulseProgram(active, idle uint8) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),               // 0: pull block
		asm.Out(rp2pio.OutDestX, 16).Encode(),        // 1: out x, 16 (high time)
		asm.Out(rp2pio.OutDestY, 16).Encode(),        // 2: out y, 16 (low time)
		asm.Set(rp2pio.SetDestPins, active).Encode(), // 3: set pins, active
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),     // 4: jmp x--, 4
		asm.Set(rp2pio.SetDestPins, idle).Encode(),   // 5: set pins, idle
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(),     // 6: jmp y--, 6
		// .wrap
	}
}

const (
	pulseProgramOrigin = 0 // Load at offset 0 for correct jump addresses
	pioClockDivider    = 125
	maxPulseCycles     = 0x10000
)

var errNoStateMachine = errors.New("pio state machine in use")

// PIOPulser implements core.StepPulser on one PIO state machine
type PIOPulser struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	stepPin machine.Pin
	pioNum  uint8
	smNum   uint8
}

// NewPIOPulser creates a pulser; pioNum is 0 or 1, smNum 0-3
func NewPIOPulser(pioNum, smNum uint8) *PIOPulser {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}

	return &PIOPulser{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
	}
}

// Init loads the pulse program and hands the step pin to the PIO block
func (p *PIOPulser) Init(stepPin core.GPIOPin, invert bool) error {
	p.stepPin = machine.Pin(stepPin)

	// Claim the state machine before touching its configuration
	if !p.sm.TryClaim() {
		return errNoStateMachine
	}

	active, idle := uint8(1), uint8(0)
	if invert {
		active, idle = 0, 1
	}
	program := buildPulseProgram(active, idle)
	offset, err := p.pio.AddProgram(program, pulseProgramOrigin)
	if err != nil {
		return err
	}

	p.stepPin.Configure(machine.PinConfig{Mode: p.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(p.stepPin, 1)
	// Shift right, explicit PULL, 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset, offset+uint8(len(program))-1)
	// 125MHz system clock / 125 = one cycle per microsecond
	cfg.SetClkDivIntFrac(pioClockDivider, 0)

	// Pin directions must be set after Init
	p.sm.Init(offset, cfg)
	p.sm.SetPindirsConsecutive(p.stepPin, 1, true)
	p.sm.SetPinsConsecutive(p.stepPin, 1, invert)
	p.sm.SetEnabled(true)
	return nil
}

// Pulse queues one pulse with equal high and low time
func (p *PIOPulser) Pulse(widthMicros uint32) {
	cycles := widthMicros
	if cycles == 0 {
		cycles = 1
	}
	if cycles > maxPulseCycles {
		cycles = maxPulseCycles
	}
	hold := cycles - 1

	for p.sm.IsTxFIFOFull() {
		// Busy wait - should be very brief
	}
	p.sm.TxPut(hold | hold<<16)
}

// Stop discards queued pulses and restarts the program
func (p *PIOPulser) Stop() {
	p.sm.SetEnabled(false)
	p.sm.ClearFIFOs()
	p.sm.Restart()
	p.sm.SetEnabled(true)
}

// GetName returns the backend name
func (p *PIOPulser) GetName() string {
	return "PIO" + strconv.Itoa(int(p.pioNum)) + "-SM" + strconv.Itoa(int(p.smNum))
}

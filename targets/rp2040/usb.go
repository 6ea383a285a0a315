//go:build rp2040

package main

import (
	"machine"

	"syringe/console"
)

// usbConsole carries the line protocol over USB CDC
type usbConsole struct {
	port          machine.Serialer
	readErrors    uint32
	writeFailures uint32
}

func newUSBConsole() *usbConsole {
	_ = machine.Serial.Configure(machine.UARTConfig{})
	return &usbConsole{port: machine.Serial}
}

// feed hands every buffered input byte to the manager
func (u *usbConsole) feed(m *console.Manager) {
	for u.port.Buffered() > 0 {
		b, err := u.port.ReadByte()
		if err != nil {
			u.readErrors++
			return
		}
		_ = m.ProcessByte(b)
	}
}

// write sends controller output. Output that cannot be written (host
// disconnected) is dropped so a stale backlog never reaches the next session.
func (u *usbConsole) write(out []byte) {
	for len(out) > 0 {
		n, err := u.port.Write(out)
		if err != nil || n == 0 {
			u.writeFailures++
			return
		}
		out = out[n:]
	}
}

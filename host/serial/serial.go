// Package serial opens the syringe controller's serial console and
// enumerates candidate ports
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// ErrNoDevice is returned when no device path was configured
var ErrNoDevice = errors.New("no serial device given")

// DefaultBaud is the rate of the controller's serial console
const DefaultBaud = 115200

// resyncSettle is how long the controller gets to answer a stray line
const resyncSettle = 50 * time.Millisecond

// Config holds serial port configuration
type Config struct {
	Device      string        // e.g. "/dev/ttyACM0", "COM3"
	Baud        int           // USB CDC ignores this
	ReadTimeout time.Duration // 0 blocks
}

// DefaultConfig returns the console settings of the controller firmware
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Port is an open controller console
type Port struct {
	port   *serial.Port
	device string
}

var _ io.ReadWriteCloser = (*Port)(nil)

// Open opens the configured device
func Open(cfg *Config) (*Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return &Port{port: port, device: cfg.Device}, nil
}

func (p *Port) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *Port) Write(b []byte) (int, error) { return p.port.Write(b) }

// Close closes the device
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	return p.port.Close()
}

// Device returns the device path
func (p *Port) Device() string {
	return p.device
}

// Resync terminates any partial line left in the controller's input
// buffer and discards whatever it answered, so the next command starts
// on a clean line.
func (p *Port) Resync() error {
	if _, err := p.port.Write([]byte{'\n'}); err != nil {
		return err
	}
	time.Sleep(resyncSettle)
	return p.port.Flush()
}

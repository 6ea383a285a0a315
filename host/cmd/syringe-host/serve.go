package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"syringe/console"
	"syringe/core"
	hostgpio "syringe/host/gpio"
	"syringe/host/serial"
)

var (
	serveI2C    string
	serveUseI2C bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller on this machine's GPIO pins",
	Long: `Run the syringe controller on the local GPIO pins (via periph.io).

Commands are read from an interactive prompt, or from a serial port when
--port is given, in which case replies are written back to the port
unstyled so a supervising host can parse them.

Examples:
  # Interactive console, default machine configuration
  syringe-host serve

  # Serve the line protocol on a UART with a custom configuration
  syringe-host serve --port /dev/ttyAMA0 --config pump.json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveUseI2C, "i2c", false, "Open an I2C bus for time-of-flight limits")
	serveCmd.Flags().StringVar(&serveI2C, "i2c-bus", "", "I2C bus name (default: first bus)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadMachineConfig(configPath)
	if err != nil {
		return err
	}

	driver, err := hostgpio.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Halt(); err != nil {
			log.Printf("Failed to release pins: %v", err)
		}
	}()

	hw := console.Hardware{GPIO: driver, Clock: core.NewSystemClock()}
	if serveUseI2C {
		bus, err := hostgpio.OpenI2C(serveI2C)
		if err != nil {
			return err
		}
		defer bus.Close()
		hw.I2C = bus
	}

	mgr, err := console.NewManagerWithConfig(cfg)
	if err != nil {
		return err
	}
	if err := mgr.Initialize(hw); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if portName != "" {
		return serveSerial(ctx, mgr)
	}
	return serveConsole(ctx, cancel, mgr, "syringe> ", nil, nil)
}

// serveConsole runs mgr behind an interactive prompt. advance defaults to
// mgr.Update; setup may register host-side commands before the loop starts.
func serveConsole(ctx context.Context, cancel context.CancelFunc, mgr *console.Manager, prompt string, advance func(), setup func(*session)) error {
	con, err := newInteractiveConsole(prompt)
	if err != nil {
		return fmt.Errorf("readline init failed: %w", err)
	}
	defer con.Close()

	s := newSession(mgr, con.Output(), styleLine, advance)
	if setup != nil {
		setup(s)
	}

	if err := mgr.Start(); err != nil {
		return err
	}
	s.flush()

	input := make(chan []byte, 10)
	go con.readLoop(ctx, cancel, input)
	s.run(ctx, input)
	return nil
}

// serveSerial runs mgr with the line protocol on the serial port
func serveSerial(ctx context.Context, mgr *console.Manager) error {
	cfg := serial.DefaultConfig(portName)
	cfg.Baud = baudRate
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()

	log.Printf("Serving %s @ %d baud", portName, baudRate)

	s := newSession(mgr, port, plainLine, nil)
	if err := mgr.Start(); err != nil {
		return err
	}
	s.flush()

	input := make(chan []byte, 10)
	go readPort(ctx, port, input)
	s.run(ctx, input)
	return nil
}

// readPort forwards raw bytes from r until ctx is done or r fails.
// Read timeouts surface as io.EOF and are not fatal.
func readPort(ctx context.Context, r io.Reader, input chan<- []byte) {
	defer close(input)
	buf := make([]byte, 128)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case input <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			log.Printf("Read error: %v", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

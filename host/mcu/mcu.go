// Package mcu talks to a syringe controller over its line protocol
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"syringe/host/serial"
)

var (
	// ErrRejected is returned when the controller answers with an "Error:" line
	ErrRejected = errors.New("controller rejected command")

	// ErrClosed is returned after the connection was closed or lost
	ErrClosed = errors.New("connection closed")
)

// DefaultTimeout bounds the wait for the reply to one command
const DefaultTimeout = 2 * time.Second

// Reply is the controller's answer to one command
type Reply struct {
	Lines       []string // Data lines, e.g. "pos=1200"
	Diagnostics []string // "# " lines without the marker
}

// MCU represents a connection to a syringe controller
type MCU struct {
	port    io.ReadWriteCloser
	lines   chan string
	done    chan struct{}
	err     error
	errOnce sync.Once
	closed  sync.Once

	// Timeout applies when Send is called with a context without deadline
	Timeout time.Duration
}

// Connect opens the serial device and starts reading replies
func Connect(device string, baud int) (*MCU, error) {
	cfg := serial.DefaultConfig(device)
	if baud > 0 {
		cfg.Baud = baud
	}
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}

	// Give the controller time to initialize (if it just powered on)
	time.Sleep(100 * time.Millisecond)
	if err := port.Resync(); err != nil {
		port.Close()
		return nil, fmt.Errorf("resync %s: %w", device, err)
	}
	return NewMCU(port), nil
}

// NewMCU wraps an open port
func NewMCU(port io.ReadWriteCloser) *MCU {
	m := &MCU{
		port:    port,
		lines:   make(chan string, 64),
		done:    make(chan struct{}),
		Timeout: DefaultTimeout,
	}
	go m.readLoop()
	return m
}

// readLoop splits the byte stream into lines. Read timeouts of the
// serial driver surface as io.EOF and are not fatal.
func (m *MCU) readLoop() {
	buf := make([]byte, 256)
	var partial []byte

	for {
		n, err := m.port.Read(buf)
		for _, b := range buf[:n] {
			switch b {
			case '\r':
			case '\n':
				line := string(partial)
				partial = partial[:0]
				select {
				case m.lines <- line:
				case <-m.done:
					return
				}
			default:
				partial = append(partial, b)
			}
		}

		if err != nil && !errors.Is(err, io.EOF) {
			m.fail(err)
			return
		}
		select {
		case <-m.done:
			return
		default:
		}
	}
}

func (m *MCU) fail(err error) {
	m.errOnce.Do(func() {
		m.err = err
		m.Close()
	})
}

// Send writes one command line and collects the reply up to "ok" or "Error:"
func (m *MCU) Send(ctx context.Context, line string) (*Reply, error) {
	if _, ok := ctx.Deadline(); !ok && m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	m.drain()
	if _, err := io.WriteString(m.port, strings.TrimSpace(line)+"\n"); err != nil {
		return nil, fmt.Errorf("write %q: %w", line, err)
	}

	reply := &Reply{}
	for {
		select {
		case <-ctx.Done():
			return reply, fmt.Errorf("waiting for reply to %q: %w", line, ctx.Err())
		case <-m.done:
			if m.err != nil {
				return reply, fmt.Errorf("%w: %w", ErrClosed, m.err)
			}
			return reply, ErrClosed
		case l := <-m.lines:
			switch {
			case l == "ok":
				return reply, nil
			case strings.HasPrefix(l, "Error:"):
				return reply, fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(strings.TrimPrefix(l, "Error:")))
			case strings.HasPrefix(l, "#"):
				reply.Diagnostics = append(reply.Diagnostics, strings.TrimSpace(strings.TrimPrefix(l, "#")))
			case l == "":
			default:
				reply.Lines = append(reply.Lines, l)
			}
		}
	}
}

// Lines returns unsolicited output (diagnostics of running motions)
func (m *MCU) Lines() <-chan string {
	return m.lines
}

// drain discards output that arrived before a command
func (m *MCU) drain() {
	for {
		select {
		case <-m.lines:
		default:
			return
		}
	}
}

// Close closes the connection
func (m *MCU) Close() error {
	var err error
	m.closed.Do(func() {
		close(m.done)
		err = m.port.Close()
	})
	return err
}

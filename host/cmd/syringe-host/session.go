package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"syringe/console"
)

// session couples a console manager to an input stream and an output writer.
// All manager calls happen on the goroutine running run.
type session struct {
	mgr    *console.Manager
	out    io.Writer
	render func(string) string

	// advance moves time forward and updates the controller
	advance func()

	// local handles host-side commands that never reach the controller
	local map[string]func()
}

func newSession(mgr *console.Manager, out io.Writer, render func(string) string, advance func()) *session {
	if render == nil {
		render = plainLine
	}
	if advance == nil {
		advance = mgr.Update
	}
	return &session{
		mgr:     mgr,
		out:     out,
		render:  render,
		advance: advance,
		local:   make(map[string]func()),
	}
}

// handle registers a host-side command, matched case-insensitively
func (s *session) handle(name string, fn func()) {
	s.local[strings.ToLower(name)] = fn
}

// run services input and the control loop until ctx is done or input
// closes. After input closes, motion already underway is finished first.
func (s *session) run(ctx context.Context, input <-chan []byte) {
	defer s.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-input:
			if !ok {
				s.finish(ctx)
				return
			}
			s.feed(b)
		default:
		}

		s.advance()
		s.flush()
	}
}

// feed passes raw input to the manager unless it is a local command
func (s *session) feed(b []byte) {
	if fn, ok := s.local[strings.ToLower(strings.TrimSpace(string(b)))]; ok {
		fn()
		return
	}
	for _, c := range b {
		// Errors are already reported to the host as "Error:" lines
		_ = s.mgr.ProcessByte(c)
	}
}

// finish keeps the loop running until the controller is no longer moving
func (s *session) finish(ctx context.Context) {
	ctrl := s.mgr.Controller()
	for ctrl != nil && ctrl.State().Moving() {
		if ctx.Err() != nil {
			return
		}
		s.advance()
		s.flush()
	}
}

func (s *session) shutdown() {
	s.mgr.Stop()
	s.flush()
}

// flush writes pending controller output one rendered line at a time
func (s *session) flush() {
	out := s.mgr.GetOutput()
	if out == nil {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		fmt.Fprintln(s.out, s.render(line))
	}
}

// println writes a host-side message in the same stream as controller output
func (s *session) println(line string) {
	fmt.Fprintln(s.out, s.render(line))
}

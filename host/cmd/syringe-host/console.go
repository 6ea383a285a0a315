package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// readlineWriter wraps log output to work with readline
type readlineWriter struct {
	rl *readline.Instance
}

func (w *readlineWriter) Write(p []byte) (n int, err error) {
	if w.rl != nil {
		w.rl.Clean()
	}
	n, err = os.Stderr.Write(p)
	if w.rl != nil {
		w.rl.Refresh()
	}
	return n, err
}

// historyFilePath returns the path for the console history file
func historyFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "" // No history if we can't find home
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "syringe-host")
	_ = os.MkdirAll(dir, 0750)
	return filepath.Join(dir, "history")
}

// interactiveConsole is a readline prompt feeding lines to a session
type interactiveConsole struct {
	rl     *readline.Instance
	logger *readlineWriter
}

func newInteractiveConsole(prompt string) (*interactiveConsole, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	// Redirect log output through readline-aware writer
	w := &readlineWriter{rl: rl}
	log.SetOutput(w)
	return &interactiveConsole{rl: rl, logger: w}, nil
}

// Output is where controller replies are printed without tearing the prompt
func (c *interactiveConsole) Output() io.Writer {
	return c.rl.Stdout()
}

// Close restores log output and releases the terminal
func (c *interactiveConsole) Close() error {
	c.logger.rl = nil
	log.SetOutput(os.Stderr)
	return c.rl.Close()
}

// readLoop sends every line to input until EOF, Ctrl+C or "quit"
func (c *interactiveConsole) readLoop(ctx context.Context, cancel context.CancelFunc, input chan<- []byte) {
	defer close(input)
	for {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			cancel() // Ctrl+C pressed, shutdown the app
			return
		}
		if err != nil {
			return // EOF or other error
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			cancel()
			return
		}

		select {
		case input <- []byte(line + "\n"):
		case <-ctx.Done():
			return
		}
	}
}

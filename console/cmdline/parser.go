// Package cmdline parses host command lines such as "SETTARGET 3200"
package cmdline

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMissingArgument is returned when a required argument is absent
	ErrMissingArgument = errors.New("missing argument")

	// ErrInvalidArgument is returned when an argument is not a valid number
	ErrInvalidArgument = errors.New("invalid argument")
)

// Command is one parsed host command line
type Command struct {
	Name    string   // Upper-cased command word
	Args    []string // Whitespace separated arguments
	Comment string   // Trailing comment, including the marker
}

// Parser splits host command lines into commands
type Parser struct {
	args []string
}

// NewParser creates a new command line parser
func NewParser() *Parser {
	return &Parser{
		args: make([]string, 0, 4),
	}
}

// ParseLine parses a single line. Blank lines return nil.
// Lines starting with ';' or '#' are comments.
func (p *Parser) ParseLine(line string) *Command {
	cmd := &Command{}
	p.args = p.args[:0]

	i := 0
	for i < len(line) {
		// Skip whitespace
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			break
		}

		// Check for comment
		if line[i] == ';' || line[i] == '#' {
			cmd.Comment = line[i:]
			break
		}

		start := i
		for i < len(line) && !isSpace(line[i]) && line[i] != ';' {
			i++
		}
		p.args = append(p.args, line[start:i])
	}

	if len(p.args) == 0 {
		if cmd.Comment == "" {
			return nil
		}
		return cmd
	}

	cmd.Name = upper(p.args[0])
	if len(p.args) > 1 {
		cmd.Args = append([]string(nil), p.args[1:]...)
	}
	return cmd
}

// IsComment reports a line that carries only a comment
func (cmd *Command) IsComment() bool {
	return cmd.Name == "" && cmd.Comment != ""
}

// Arg returns argument i, or "" if not present
func (cmd *Command) Arg(i int) string {
	if i < 0 || i >= len(cmd.Args) {
		return ""
	}
	return cmd.Args[i]
}

// IntArg parses argument i as a signed 32-bit integer
func (cmd *Command) IntArg(i int) (int32, error) {
	s := cmd.Arg(i)
	if s == "" {
		return 0, ErrMissingArgument
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidArgument, s)
	}
	return int32(n), nil
}

// UintArg parses argument i as an unsigned 16-bit integer
func (cmd *Command) UintArg(i int) (uint16, error) {
	s := cmd.Arg(i)
	if s == "" {
		return 0, ErrMissingArgument
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidArgument, s)
	}
	return uint16(n), nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// upper converts ASCII letters to uppercase
func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

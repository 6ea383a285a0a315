package console

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"syringe/console/cmdline"
)

// ErrUnknownCommand is returned for command names that are not registered
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler handles one parsed host command
type CommandHandler func(cmd *cmdline.Command) error

// Command is a registered host command
type Command struct {
	Name    string
	Usage   string // Argument synopsis for HELP, e.g. "<n>"
	Help    string
	Handler CommandHandler
}

// CommandRegistry maps command names and aliases to handlers.
// Commands are listed in registration order.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	aliases  map[string]string
	order    []*Command
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command. Registering a name twice keeps the first handler.
func (r *CommandRegistry) Register(name, usage, help string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return
	}

	cmd := &Command{
		Name:    name,
		Usage:   usage,
		Help:    help,
		Handler: handler,
	}
	r.commands[name] = cmd
	r.order = append(r.order, cmd)
}

// Alias makes alias dispatch to the command registered as name
func (r *CommandRegistry) Alias(alias, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = name
}

// Lookup resolves a command name or alias
func (r *CommandRegistry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		name = target
	}
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Dispatch calls the handler registered for cmd.Name
func (r *CommandRegistry) Dispatch(cmd *cmdline.Command) error {
	c, ok := r.Lookup(cmd.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	return c.Handler(cmd)
}

// Commands returns the registered commands in registration order
func (r *CommandRegistry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Command(nil), r.order...)
}

// AliasesOf returns the aliases of the command registered as name
func (r *CommandRegistry) AliasesOf(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for alias, target := range r.aliases {
		if target == name {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

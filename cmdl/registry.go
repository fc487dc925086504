package cmdl

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrEmptyCommand   = errors.New("empty command")
)

// Handler runs a command. args[0] is the command name.
type Handler func(args []string) error

// Command is a named console command
type Command struct {
	Name    string
	Usage   string // Argument synopsis for help, e.g. "<task> <period_ms>"
	Help    string
	Handler Handler
}

// Registry holds the registered commands
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	order    []string // Registration order, used by help
}

// NewRegistry creates an empty command registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
	}
}

// Register adds a command. A second registration under the same name
// replaces the handler but keeps its position in help.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	c := cmd
	r.commands[cmd.Name] = &c
}

// Lookup retrieves a command by name
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Commands returns the commands in registration order
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		cmds = append(cmds, *r.commands[name])
	}
	return cmds
}

// Dispatch calls the handler named by args[0]
func (r *Registry) Dispatch(args []string) error {
	if len(args) == 0 {
		return ErrEmptyCommand
	}
	cmd, ok := r.Lookup(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	return cmd.Handler(args)
}

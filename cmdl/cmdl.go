// Package cmdl is a line-oriented command interpreter for a serial console.
// Bytes arrive through Receive, usually from the UART receive interrupt;
// editing and command execution happen later on the run loop through
// ExecutePending.
package cmdl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/emirpasic/gods/queues/circularbuffer"
	"github.com/google/shlex"

	"avrkit/core"
	"avrkit/runloop"
)

// Control bytes handled on the receive path and by the line editor
const (
	KeyPause     = 0x10 // Ctrl-P
	keyBackspace = 0x08
	keyDelete    = 0x7F
)

var (
	ErrLineTooLong = errors.New("line too long")
	ErrNoHistory   = errors.New("no previous command")
)

// Config holds console configuration
type Config struct {
	Prompt   string // Printed after the run state, e.g. "running> "
	PauseKey byte   // Byte that toggles pause from the receive path; 0 disables
	MaxLine  int    // Longest accepted line
	RxBuffer int    // Receive ring capacity in bytes
	History  int    // Number of lines kept for the history command
	Echo     bool   // Echo typed characters back
}

// DefaultConfig returns the console defaults
func DefaultConfig() Config {
	return Config{
		Prompt:   "> ",
		PauseKey: KeyPause,
		MaxLine:  64,
		RxBuffer: 128,
		History:  8,
		Echo:     true,
	}
}

// ByteSource is a receive buffer filled by an interrupt handler, such as
// machine.UART on TinyGo.
type ByteSource interface {
	Buffered() int
	ReadByte() (byte, error)
}

// Interpreter is the console front end of the run loop
type Interpreter struct {
	cfg      Config
	out      io.Writer
	registry *Registry

	rx        *fifo
	rxDropped atomic.Uint32
	source    ByteSource

	// Run loop side only
	line     []byte
	overflow bool
	lastCR   bool
	last     string
	history  *circularbuffer.Queue
	state    runloop.State

	pauseTrigger atomic.Pointer[func()]
	dataTrigger  atomic.Pointer[func()]
}

var (
	_ runloop.Frontend = (*Interpreter)(nil)
	_ runloop.Poller   = (*Interpreter)(nil)
)

// New creates an interpreter writing its output to out
func New(cfg Config, out io.Writer) *Interpreter {
	def := DefaultConfig()
	if cfg.MaxLine <= 0 {
		cfg.MaxLine = def.MaxLine
	}
	if cfg.RxBuffer <= 0 {
		cfg.RxBuffer = def.RxBuffer
	}
	if cfg.History <= 0 {
		cfg.History = def.History
	}
	if out == nil {
		out = io.Discard
	}

	in := &Interpreter{
		cfg:      cfg,
		out:      out,
		registry: NewRegistry(),
		rx:       newFifo(cfg.RxBuffer),
		line:     make([]byte, 0, cfg.MaxLine),
		history:  circularbuffer.New(cfg.History),
	}
	in.registerBuiltins()
	return in
}

// Registry returns the command registry
func (in *Interpreter) Registry() *Registry {
	return in.registry
}

// Register adds a command
func (in *Interpreter) Register(name, usage, help string, handler Handler) {
	in.registry.Register(Command{Name: name, Usage: usage, Help: help, Handler: handler})
}

// RegisterPauseTrigger installs the pause callback
func (in *Interpreter) RegisterPauseTrigger(fn func()) {
	in.pauseTrigger.Store(&fn)
}

// RegisterDataTrigger installs the data available callback
func (in *Interpreter) RegisterDataTrigger(fn func()) {
	in.dataTrigger.Store(&fn)
}

// Receive queues received bytes. It is safe from interrupt context: it only
// touches the receive ring and raises triggers. Bytes that do not fit are
// dropped and counted.
func (in *Interpreter) Receive(p []byte) {
	queued := false
	for _, b := range p {
		if in.cfg.PauseKey != 0 && b == in.cfg.PauseKey {
			if fn := in.pauseTrigger.Load(); fn != nil {
				(*fn)()
			}
			continue
		}

		state := core.DisableInterrupts()
		ok := in.rx.push(b)
		core.RestoreInterrupts(state)
		if !ok {
			in.rxDropped.Add(1)
			continue
		}
		queued = true
	}

	if queued {
		if fn := in.dataTrigger.Load(); fn != nil {
			(*fn)()
		}
	}
}

// Write implements io.Writer on top of Receive, so a serial reader can be
// copied straight into the interpreter.
func (in *Interpreter) Write(p []byte) (int, error) {
	in.Receive(p)
	return len(p), nil
}

// SetSource makes the run loop pull received bytes from src through Poll.
// Set it before the run loop is initialized.
func (in *Interpreter) SetSource(src ByteSource) {
	in.source = src
}

// Poll moves bytes waiting in the source into the receive path
func (in *Interpreter) Poll() {
	if in.source == nil {
		return
	}
	var buf [16]byte
	for in.source.Buffered() > 0 {
		n := 0
		for n < len(buf) && in.source.Buffered() > 0 {
			b, err := in.source.ReadByte()
			if err != nil {
				break
			}
			buf[n] = b
			n++
		}
		if n == 0 {
			return
		}
		in.Receive(buf[:n])
	}
}

// Pending reports whether the source holds bytes not yet polled
func (in *Interpreter) Pending() bool {
	return in.source != nil && in.source.Buffered() > 0
}

// Dropped returns the number of received bytes lost to a full ring
func (in *Interpreter) Dropped() uint32 {
	return in.rxDropped.Load()
}

// ExecutePending edits the current line with the received bytes and runs
// every line completed so far.
func (in *Interpreter) ExecutePending() {
	var buf [32]byte
	for {
		state := core.DisableInterrupts()
		n := in.rx.drain(buf[:])
		core.RestoreInterrupts(state)
		if n == 0 {
			return
		}
		for _, b := range buf[:n] {
			in.edit(b)
		}
	}
}

func (in *Interpreter) edit(b byte) {
	switch {
	case b == '\r' || b == '\n':
		if b == '\n' && in.lastCR {
			in.lastCR = false
			return
		}
		in.lastCR = b == '\r'
		in.echo("\r\n")
		in.completeLine()
		return
	case b == keyBackspace || b == keyDelete:
		if len(in.line) > 0 && !in.overflow {
			in.line = in.line[:len(in.line)-1]
			in.echo("\b \b")
		}
	case b >= ' ' && b < keyDelete:
		if len(in.line) >= in.cfg.MaxLine {
			in.overflow = true
			break
		}
		in.line = append(in.line, b)
		in.echo(string(b))
	}
	in.lastCR = false
}

func (in *Interpreter) completeLine() {
	line := string(in.line)
	overflow := in.overflow
	in.line = in.line[:0]
	in.overflow = false

	if overflow {
		in.printError(fmt.Errorf("%w (max %d)", ErrLineTooLong, in.cfg.MaxLine))
	} else if err := in.Execute(line); err != nil {
		in.printError(err)
	}
	in.printPrompt()
}

// Execute runs a single command line synchronously. Blank lines do nothing;
// "!!" repeats the previous line.
func (in *Interpreter) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if line == "!!" {
		if in.last == "" {
			return ErrNoHistory
		}
		line = in.last
		fmt.Fprintln(in.out, line)
	}

	in.last = line
	in.history.Enqueue(line)

	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	return in.registry.Dispatch(args)
}

// PrintStatus prints the prompt tagged with the run state
func (in *Interpreter) PrintStatus(s runloop.State) {
	in.state = s
	fmt.Fprint(in.out, "\r\n")
	in.printPrompt()
}

// Printf writes formatted output to the console
func (in *Interpreter) Printf(format string, args ...any) {
	fmt.Fprintf(in.out, format, args...)
}

// History returns the remembered lines, oldest first
func (in *Interpreter) History() []string {
	values := in.history.Values()
	lines := make([]string, 0, len(values))
	for _, v := range values {
		lines = append(lines, v.(string))
	}
	return lines
}

func (in *Interpreter) printPrompt() {
	fmt.Fprint(in.out, in.state.String()+in.cfg.Prompt)
}

func (in *Interpreter) printError(err error) {
	fmt.Fprintf(in.out, "error: %v\r\n", err)
}

func (in *Interpreter) echo(s string) {
	if in.cfg.Echo {
		fmt.Fprint(in.out, s)
	}
}

func (in *Interpreter) registerBuiltins() {
	in.Register("help", "", "List commands", func(args []string) error {
		for _, cmd := range in.registry.Commands() {
			usage := cmd.Name
			if cmd.Usage != "" {
				usage += " " + cmd.Usage
			}
			fmt.Fprintf(in.out, "  %-28s %s\r\n", usage, cmd.Help)
		}
		return nil
	})
	in.Register("history", "", "Show previous command lines", func(args []string) error {
		for i, line := range in.History() {
			fmt.Fprintln(in.out, "  "+strconv.Itoa(i+1)+"  "+line)
		}
		return nil
	})
}

package cmdl

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"avrkit/runloop"
)

func newTestInterpreter(cfg Config) (*Interpreter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(cfg, out), out
}

func feed(in *Interpreter, s string) {
	in.Receive([]byte(s))
	in.ExecutePending()
}

func TestInterpreterExecutesLines(t *testing.T) {
	in, out := newTestInterpreter(DefaultConfig())

	var got [][]string
	in.Register("set", "<name> <value>", "Set a value", func(args []string) error {
		got = append(got, args)
		return nil
	})

	feed(in, "set speed 10\r\nset 'long name' \"a b\"\n")

	if len(got) != 2 {
		t.Fatalf("Expected 2 executions, got %d", len(got))
	}
	if got[0][1] != "speed" || got[0][2] != "10" {
		t.Errorf("Unexpected args %q", got[0])
	}
	if got[1][1] != "long name" || got[1][2] != "a b" {
		t.Errorf("Quoted args not split correctly: %q", got[1])
	}
	if !strings.Contains(out.String(), "set speed 10\r\n") {
		t.Errorf("Expected echo of typed line, got %q", out.String())
	}
}

func TestInterpreterLineEndings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"CR", "x\r", 1},
		{"LF", "x\n", 1},
		{"CRLF", "x\r\n", 1},
		{"CRLF split", "x\r", 1},
		{"Two lines", "x\rx\n", 2},
		{"Blank lines", "\r\n\r\n\n", 0},
		{"No terminator", "x", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := newTestInterpreter(DefaultConfig())
			calls := 0
			in.Register("x", "", "", func(args []string) error {
				calls++
				return nil
			})

			feed(in, tt.input)
			if tt.name == "CRLF split" {
				feed(in, "\n")
			}
			if calls != tt.want {
				t.Errorf("Expected %d calls, got %d", tt.want, calls)
			}
		})
	}
}

func TestInterpreterBackspace(t *testing.T) {
	in, out := newTestInterpreter(DefaultConfig())

	var got string
	in.Register("go", "", "", func(args []string) error {
		got = strings.Join(args, " ")
		return nil
	})

	feed(in, "goxx\b\x7f now\r")

	if got != "go now" {
		t.Errorf("Expected 'go now', got '%s'", got)
	}
	if !strings.Contains(out.String(), "\b \b") {
		t.Error("Expected backspace to be echoed as erase sequence")
	}
}

func TestInterpreterLineTooLong(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLine = 8
	in, out := newTestInterpreter(cfg)

	calls := 0
	in.Register("abc", "", "", func(args []string) error {
		calls++
		return nil
	})

	feed(in, "abc 1234567890\r")
	if calls != 0 {
		t.Error("Overlong line should be discarded")
	}
	if !strings.Contains(out.String(), ErrLineTooLong.Error()) {
		t.Errorf("Expected line too long error, got %q", out.String())
	}

	// The next line is accepted again
	feed(in, "abc\r")
	if calls != 1 {
		t.Errorf("Expected 1 call after overflow, got %d", calls)
	}
}

func TestInterpreterUnknownCommand(t *testing.T) {
	in, out := newTestInterpreter(DefaultConfig())

	if err := in.Execute("bogus"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}

	feed(in, "bogus\r")
	if !strings.Contains(out.String(), "error: unknown command: bogus") {
		t.Errorf("Expected error message, got %q", out.String())
	}
}

func TestInterpreterRepeatAndHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History = 3
	in, out := newTestInterpreter(cfg)

	if err := in.Execute("!!"); !errors.Is(err, ErrNoHistory) {
		t.Errorf("Expected ErrNoHistory, got %v", err)
	}

	calls := 0
	in.Register("ping", "", "", func(args []string) error {
		calls++
		return nil
	})

	for _, line := range []string{"ping", "!!", "ping 2", "ping 3"} {
		if err := in.Execute(line); err != nil {
			t.Fatalf("Execute(%q) failed: %v", line, err)
		}
	}
	if calls != 4 {
		t.Errorf("Expected 4 calls, got %d", calls)
	}

	// Oldest entry is overwritten once the buffer is full
	hist := in.History()
	want := []string{"ping", "ping 2", "ping 3"}
	if len(hist) != len(want) {
		t.Fatalf("Expected %d history entries, got %q", len(want), hist)
	}
	for i := range want {
		if hist[i] != want[i] {
			t.Errorf("History %d: expected %q, got %q", i, want[i], hist[i])
		}
	}

	out.Reset()
	if err := in.Execute("history"); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out.String(), "ping 3") {
		t.Errorf("Expected history listing, got %q", out.String())
	}
}

func TestInterpreterHelp(t *testing.T) {
	in, out := newTestInterpreter(DefaultConfig())
	in.Register("add", "<task> <period_ms>", "Add a task", func(args []string) error { return nil })

	if err := in.Execute("help"); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, want := range []string{"help", "history", "add <task> <period_ms>", "Add a task"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected help to mention %q, got %q", want, out.String())
		}
	}
}

func TestInterpreterTriggers(t *testing.T) {
	in, _ := newTestInterpreter(DefaultConfig())

	pauses, data := 0, 0
	in.RegisterPauseTrigger(func() { pauses++ })
	in.RegisterDataTrigger(func() { data++ })

	in.Receive([]byte{KeyPause})
	if pauses != 1 || data != 0 {
		t.Errorf("Pause key: expected 1 pause and no data, got %d and %d", pauses, data)
	}

	in.Receive([]byte("ab"))
	if data != 1 {
		t.Errorf("Expected one data trigger per receive, got %d", data)
	}

	// Pause key in the middle of a burst is filtered out of the line
	var got string
	in.Register("abc", "", "", func(args []string) error {
		got = args[0]
		return nil
	})
	in.Receive([]byte{'c', KeyPause, '\r'})
	in.ExecutePending()
	if pauses != 2 {
		t.Errorf("Expected 2 pauses, got %d", pauses)
	}
	if got != "abc" {
		t.Errorf("Expected 'abc', got '%s'", got)
	}
}

func TestInterpreterReceiveOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RxBuffer = 4
	in, _ := newTestInterpreter(cfg)

	n, err := in.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Errorf("Write returned %d, %v", n, err)
	}
	if in.Dropped() != 2 {
		t.Errorf("Expected 2 dropped bytes, got %d", in.Dropped())
	}
}

func TestInterpreterPrintStatus(t *testing.T) {
	in, out := newTestInterpreter(DefaultConfig())

	in.PrintStatus(runloop.Paused)
	if !strings.HasSuffix(out.String(), "paused> ") {
		t.Errorf("Expected paused prompt, got %q", out.String())
	}

	in.PrintStatus(runloop.Running)
	out.Reset()
	feed(in, "\r")
	if !strings.HasSuffix(out.String(), "running> ") {
		t.Errorf("Expected running prompt after a line, got %q", out.String())
	}
}

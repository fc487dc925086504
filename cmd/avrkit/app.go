package main

import (
	"context"
	"io"
	"log/slog"

	"avrkit/cmdl"
	"avrkit/core"
	"avrkit/runloop"
)

// app ties the run loop to its console
type app struct {
	rl     *runloop.Runloop
	con    *cmdl.Interpreter
	logger *slog.Logger
}

func newApp(rc runloop.Config, cc cmdl.Config, out io.Writer, logger *slog.Logger) *app {
	a := &app{logger: logger}

	rc.OnTaskError = func(id runloop.TaskID, code runloop.Status) {
		a.logger.Warn("task failed", "id", id, "code", uint8(code))
	}
	rc.OnSyncError = func(id runloop.TaskID, dropped uint16) {
		a.logger.Warn("task missed deadlines", "id", id, "dropped", dropped)
	}

	a.rl = runloop.New(rc)
	a.con = cmdl.New(cc, out)
	a.registerCommands()
	return a
}

// run binds the timer and blocks until the loop stops
func (a *app) run(ctx context.Context, timer core.Timer) error {
	if err := a.rl.Init(timer, a.con); err != nil {
		return err
	}
	return a.rl.Run(ctx)
}

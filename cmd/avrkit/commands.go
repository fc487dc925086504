package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"avrkit/core"
	"avrkit/runloop"
)

var (
	errUsage       = errors.New("usage")
	errUnknownTask = errors.New("unknown task")
)

func (a *app) registerCommands() {
	a.con.Register("add", "<task> <executions> <period_ms> [delay_ms]",
		"Add a task ("+strings.Join(catalogNames(), ", ")+"); executions 0 runs forever", a.cmdAdd)
	a.con.Register("tasks", "", "List resident tasks", a.cmdTasks)
	a.con.Register("pause", "", "Pause the run loop", func(args []string) error {
		a.rl.SetPaused(true)
		return nil
	})
	a.con.Register("resume", "", "Resume the run loop", func(args []string) error {
		a.rl.SetPaused(false)
		return nil
	})
	a.con.Register("stop", "", "Stop the run loop and exit", func(args []string) error {
		a.rl.Stop()
		return nil
	})
	a.con.Register("uptime", "", "Show time counted by the run loop", func(args []string) error {
		a.con.Printf("uptime %dms (%d cycles)\r\n", a.rl.UptimeMS(), a.rl.Uptime())
		return nil
	})
	a.con.Register("trace", "[clear]", "Dump or clear the scheduler event ring", a.cmdTrace)
}

func (a *app) cmdAdd(args []string) error {
	if len(args) < 4 || len(args) > 5 {
		return fmt.Errorf("%w: add <task> <executions> <period_ms> [delay_ms]", errUsage)
	}

	spec, ok := catalog[args[1]]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownTask, args[1])
	}
	executions, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil {
		return fmt.Errorf("executions: %w", err)
	}
	period, err := strconv.ParseUint(args[3], 10, 32)
	if err != nil {
		return fmt.Errorf("period: %w", err)
	}
	var delay uint64
	if len(args) == 5 {
		delay, err = strconv.ParseUint(args[4], 10, 32)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
	}

	st := &taskState{name: args[1], logger: a.logger}
	id, err := a.rl.AddTask(spec.fn, st, uint16(executions), uint32(period), uint32(delay))
	if err != nil {
		return err
	}
	a.logger.Debug("task added", "id", id, "task", args[1], "executions", executions, "period_ms", period)
	a.con.Printf("task %d: %s\r\n", id, args[1])
	return nil
}

func (a *app) cmdTasks(args []string) error {
	infos := a.rl.Tasks()
	if len(infos) == 0 {
		a.con.Printf("no tasks (%d slots)\r\n", a.rl.Capacity())
		return nil
	}

	clock := a.rl.ClockHz()
	a.con.Printf("%-3s %-8s %-9s %-9s %s\r\n", "id", "state", "remaining", "next_ms", "period_ms")
	for _, t := range infos {
		remaining := "forever"
		if t.Remaining != runloop.Infinite {
			remaining = strconv.Itoa(int(t.Remaining))
		}
		a.con.Printf("%-3d %-8s %-9s %-9d %d\r\n", t.ID, t.State, remaining,
			core.MSFromCycles(uint64(t.CyclesToNext), clock),
			core.MSFromCycles(uint64(t.CyclesPerPeriod), clock))
	}
	return nil
}

func (a *app) cmdTrace(args []string) error {
	if len(args) > 1 {
		if args[1] != "clear" {
			return fmt.Errorf("%w: trace [clear]", errUsage)
		}
		core.ClearTimingRing()
		return nil
	}
	core.DumpTimingRing(func(s string) {
		a.con.Printf("%s\r\n", s)
	})
	return nil
}

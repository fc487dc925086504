package main

import (
	"log/slog"
	"sort"

	"avrkit/runloop"
)

// taskSpec is an entry of the built-in task catalog
type taskSpec struct {
	help string
	fn   runloop.TaskFunc
}

// taskState is the context handed to a catalog task
type taskState struct {
	name   string
	logger *slog.Logger
	count  int
	on     bool
}

var catalog = map[string]taskSpec{
	"blink": {"Toggle the virtual LED", blinkTask},
	"count": {"Log an increasing counter", countTask},
	"fail":  {"Report error code 2 on the first run", failTask},
	"abort": {"Retire itself on the first run", abortTask},
}

func catalogNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func blinkTask(ctx any) runloop.Status {
	st := ctx.(*taskState)
	st.on = !st.on
	st.count++
	st.logger.Info("led", "task", st.name, "on", st.on)
	return runloop.StatusOK
}

func countTask(ctx any) runloop.Status {
	st := ctx.(*taskState)
	st.count++
	st.logger.Info("count", "task", st.name, "n", st.count)
	return runloop.StatusOK
}

func failTask(ctx any) runloop.Status {
	st := ctx.(*taskState)
	st.count++
	return runloop.StatusError
}

func abortTask(ctx any) runloop.Status {
	st := ctx.(*taskState)
	st.count++
	st.logger.Info("abort", "task", st.name)
	return runloop.StatusAbort
}

//go:build tinygo && avr

// Firmware for ATmega328P boards (Arduino Uno/Nano): the run loop on Timer1
// with the command console on the USART.
package main

import (
	"context"
	"machine"

	"avrkit/cmdl"
	"avrkit/core"
	"avrkit/runloop"
)

const (
	blinkPeriodMS   = 500
	adcPeriodMS     = 100
	canPollPeriodMS = 5
)

var (
	rl      *runloop.Runloop
	console *cmdl.Interpreter
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s + "\r\n"))
	})

	cfg := runloop.DefaultConfig()
	cfg.OnTaskError = func(id runloop.TaskID, code runloop.Status) {
		console.Printf("task %d failed: %d\r\n", id, code)
	}
	cfg.OnSyncError = func(id runloop.TaskID, dropped uint16) {
		console.Printf("task %d dropped %d\r\n", id, dropped)
	}
	rl = runloop.New(cfg)

	cc := cmdl.DefaultConfig()
	cc.MaxLine = 32
	cc.RxBuffer = 32
	cc.History = 4
	console = cmdl.New(cc, machine.Serial)
	// The USART interrupt only fills machine.Serial's ring and wakes the
	// CPU; the run loop polls it on every wake, paused or not.
	console.SetSource(machine.Serial)
	registerCommands()

	initLED()
	initADC()
	initCAN()

	if err := rl.Init(core.NewAVRTimer(), console); err != nil {
		core.DebugPrintln("init: " + err.Error())
		return
	}
	rl.Run(context.Background())

	console.Printf("\r\nstopped\r\n")
	for {
		core.NewSleeper().Sleep(nil)
	}
}

func registerCommands() {
	console.Register("tasks", "", "List tasks", func(args []string) error {
		for _, t := range rl.Tasks() {
			console.Printf("%d %s %d\r\n", t.ID, t.State, core.MSFromCycles(uint64(t.CyclesPerPeriod), rl.ClockHz()))
		}
		return nil
	})
	console.Register("pause", "", "Pause the run loop", func(args []string) error {
		rl.SetPaused(true)
		return nil
	})
	console.Register("resume", "", "Resume the run loop", func(args []string) error {
		rl.SetPaused(false)
		return nil
	})
	console.Register("stop", "", "Stop the run loop", func(args []string) error {
		rl.Stop()
		return nil
	})
	console.Register("uptime", "", "Show uptime", func(args []string) error {
		console.Printf("%dms\r\n", rl.UptimeMS())
		return nil
	})
	console.Register("adc", "", "Show the last ADC sample", func(args []string) error {
		console.Printf("adc0=%d\r\n", lastSample)
		return nil
	})
	console.Register("can", "", "Show CAN receive count", func(args []string) error {
		console.Printf("frames=%d last_id=%#x\r\n", canFrames, canLastID)
		return nil
	})
	console.Register("trace", "", "Dump scheduler events", func(args []string) error {
		core.DumpTimingRing(func(s string) {
			console.Printf("%s\r\n", s)
		})
		return nil
	})
}

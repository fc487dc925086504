//go:build tinygo && avr

package main

import (
	"machine"

	"avrkit/core"
	"avrkit/runloop"
)

var ledOn bool

func initLED() {
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	if _, err := rl.AddTask(blink, machine.LED, runloop.Infinite, blinkPeriodMS, 0); err != nil {
		core.DebugPrintln("led task: " + err.Error())
	}
}

func blink(ctx any) runloop.Status {
	pin := ctx.(machine.Pin)
	ledOn = !ledOn
	pin.Set(ledOn)
	return runloop.StatusOK
}

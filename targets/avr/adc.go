//go:build tinygo && avr

package main

import (
	"machine"

	"avrkit/core"
	"avrkit/runloop"
)

var lastSample uint16

func initADC() {
	machine.InitADC()
	adc := &machine.ADC{Pin: machine.ADC0}
	adc.Configure(machine.ADCConfig{})

	if _, err := rl.AddTask(sampleADC, adc, runloop.Infinite, adcPeriodMS, 0); err != nil {
		core.DebugPrintln("adc task: " + err.Error())
	}
}

// sampleADC keeps the latest reading of ADC0, scaled to 16 bits by machine
func sampleADC(ctx any) runloop.Status {
	adc := ctx.(*machine.ADC)
	lastSample = adc.Get()
	return runloop.StatusOK
}

//go:build tinygo && avr

package main

import (
	"machine"

	"tinygo.org/x/drivers/mcp2515"

	"avrkit/core"
	"avrkit/runloop"
)

// canStatusFault is reported through OnTaskError when the controller stops
// answering.
const canStatusFault runloop.Status = runloop.StatusError + 1

var (
	canFrames uint32
	canLastID uint32
)

// initCAN brings up an MCP2515 module on SPI with chip select on D10
func initCAN() {
	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 4000000,
		Mode:      0,
	})

	can := mcp2515.New(machine.SPI0, machine.D10)
	can.Configure()
	if err := can.Begin(mcp2515.CAN500kBps, mcp2515.Clock16MHz); err != nil {
		core.DebugPrintln("mcp2515: " + err.Error())
		return
	}

	if _, err := rl.AddTask(pollCAN, can, runloop.Infinite, canPollPeriodMS, 0); err != nil {
		core.DebugPrintln("can task: " + err.Error())
	}
}

// pollCAN drains received frames. A read error retires the task.
func pollCAN(ctx any) runloop.Status {
	can := ctx.(*mcp2515.Device)
	for can.Received() {
		msg, err := can.Rx()
		if err != nil {
			return canStatusFault
		}
		canFrames++
		canLastID = msg.ID
	}
	return runloop.StatusOK
}

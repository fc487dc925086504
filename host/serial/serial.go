// Package serial connects the console UART to the command interpreter on
// host builds.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the console UART
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the console defaults for the given device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100, // Lets the receive loop notice cancellation
	}
}

// Pump copies received bytes into dst until ctx ends or the port fails. It
// plays the part of the UART receive interrupt: each chunk is handed to dst
// as soon as it arrives. A read that times out with no data is retried.
func Pump(ctx context.Context, port io.Reader, dst io.Writer) error {
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := port.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("deliver received data: %w", werr)
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF) && n == 0:
			// tarm/serial reports a read timeout as EOF; back off briefly
			// so a closed pipe does not spin.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		case errors.Is(err, io.EOF):
		default:
			return fmt.Errorf("serial read: %w", err)
		}
	}
}

package main

import (
	"bytes"
	"errors"
	"testing"

	"avrkit/host/serial"
)

// mockPort records Flush and Close calls
type mockPort struct {
	bytes.Buffer
	flushed  int
	closed   bool
	flushErr error
}

func (m *mockPort) Flush() error {
	m.flushed++
	return m.flushErr
}

func (m *mockPort) Close() error {
	m.closed = true
	return nil
}

func withOpenPort(t *testing.T, fn func(*serial.Config) (serial.Port, error)) {
	t.Helper()
	saved := openPort
	openPort = fn
	t.Cleanup(func() { openPort = saved })
}

func TestOpenConsolePortFlushes(t *testing.T) {
	port := &mockPort{}
	withOpenPort(t, func(*serial.Config) (serial.Port, error) { return port, nil })

	got, err := openConsolePort(serial.DefaultConfig("/dev/ttyUSB0"))
	if err != nil {
		t.Fatalf("openConsolePort failed: %v", err)
	}
	if got != port {
		t.Error("Expected the opened port to be returned")
	}
	if port.flushed != 1 {
		t.Errorf("Expected stale input flushed once, got %d", port.flushed)
	}
	if port.closed {
		t.Error("Port closed after successful open")
	}
}

func TestOpenConsolePortErrors(t *testing.T) {
	errOpen := errors.New("no such device")
	withOpenPort(t, func(*serial.Config) (serial.Port, error) { return nil, errOpen })
	if _, err := openConsolePort(serial.DefaultConfig("/dev/none")); !errors.Is(err, errOpen) {
		t.Errorf("Expected open error, got %v", err)
	}

	errFlush := errors.New("flush failed")
	port := &mockPort{flushErr: errFlush}
	withOpenPort(t, func(*serial.Config) (serial.Port, error) { return port, nil })
	if _, err := openConsolePort(serial.DefaultConfig("/dev/ttyUSB0")); !errors.Is(err, errFlush) {
		t.Errorf("Expected flush error, got %v", err)
	}
	if !port.closed {
		t.Error("Expected port closed after failed flush")
	}
}

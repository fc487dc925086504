package config

import (
	"os"
	"path/filepath"
	"testing"

	"avrkit/cmdl"
	"avrkit/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avrkit.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.ClockHz != core.ClockFreq {
		t.Errorf("Expected clock %d, got %d", core.ClockFreq, cfg.ClockHz)
	}
	if cfg.MaxTasks != 8 {
		t.Errorf("Expected 8 tasks, got %d", cfg.MaxTasks)
	}
	if cfg.Console.PauseKey != cmdl.KeyPause {
		t.Errorf("Expected pause key 0x10, got %#x", cfg.Console.PauseKey)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
clock_hz: 8000000
max_tasks: 4
uptime_wake_ms: 0
serial:
  device: /dev/ttyUSB0
  baud: 57600
console:
  prompt: "$ "
  history: 16
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ClockHz != 8000000 {
		t.Errorf("Expected clock 8000000, got %d", cfg.ClockHz)
	}
	if cfg.MaxTasks != 4 {
		t.Errorf("Expected 4 tasks, got %d", cfg.MaxTasks)
	}
	if cfg.UptimeWakeMS != 0 {
		t.Errorf("Expected uptime wake disabled, got %d", cfg.UptimeWakeMS)
	}
	if cfg.Serial.Device != "/dev/ttyUSB0" || cfg.Serial.Baud != 57600 {
		t.Errorf("Unexpected serial config %+v", cfg.Serial)
	}
	// Unset keys keep their defaults
	if cfg.Serial.ReadTimeoutMS != 100 {
		t.Errorf("Expected default read timeout 100, got %d", cfg.Serial.ReadTimeoutMS)
	}
	if cfg.Console.MaxLine != 64 {
		t.Errorf("Expected default max line 64, got %d", cfg.Console.MaxLine)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}

	cc := cfg.ConsoleConfig()
	if cc.Prompt != "$ " || cc.History != 16 {
		t.Errorf("Unexpected console config %+v", cc)
	}
	rc := cfg.Runloop()
	if rc.ClockHz != 8000000 || rc.MaxTasks != 4 || rc.UptimeWakeMS != 0 {
		t.Errorf("Unexpected runloop config %+v", rc)
	}
	sc := cfg.SerialPort()
	if sc.Device != "/dev/ttyUSB0" || sc.Baud != 57600 || sc.ReadTimeout != 100 {
		t.Errorf("Unexpected serial port config %+v", sc)
	}
}

func TestLoadClamps(t *testing.T) {
	path := writeConfig(t, `
clock_hz: 10
max_tasks: 1000
serial:
  baud: -1
console:
  pause_key: 300
  max_line: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ClockHz != core.ClockFreq {
		t.Errorf("Expected clock clamped to default, got %d", cfg.ClockHz)
	}
	if cfg.MaxTasks != 255 {
		t.Errorf("Expected max tasks clamped to 255, got %d", cfg.MaxTasks)
	}
	if cfg.Serial.Baud != 115200 {
		t.Errorf("Expected default baud, got %d", cfg.Serial.Baud)
	}
	if cfg.Console.PauseKey != cmdl.KeyPause {
		t.Errorf("Expected default pause key, got %#x", cfg.Console.PauseKey)
	}
	if cfg.Console.MaxLine != 64 {
		t.Errorf("Expected default max line, got %d", cfg.Console.MaxLine)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := writeConfig(t, "max_tasks: [1, 2\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

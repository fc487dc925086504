// Package config loads the avrkit YAML configuration.
package config

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"avrkit/cmdl"
	"avrkit/core"
	"avrkit/host/serial"
	"avrkit/runloop"
)

// Config mirrors avrkit.yaml
type Config struct {
	ClockHz      uint32 `yaml:"clock_hz"`       // 16000000 (by default)
	MaxTasks     int    `yaml:"max_tasks"`      // 8
	UptimeWakeMS uint32 `yaml:"uptime_wake_ms"` // 1000; 0 disables the periodic wake

	Serial  SerialConfig  `yaml:"serial"`
	Console ConsoleConfig `yaml:"console"`
	Log     LogConfig     `yaml:"log"`
}

// SerialConfig selects the console port. An empty device uses stdin/stdout.
type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMS int    `yaml:"read_timeout_ms"`
}

type ConsoleConfig struct {
	PauseKey int    `yaml:"pause_key"` // 16 (Ctrl-P); 0 disables
	MaxLine  int    `yaml:"max_line"`
	History  int    `yaml:"history"`
	Prompt   string `yaml:"prompt"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		ClockHz:      core.ClockFreq,
		MaxTasks:     runloop.MaxTasks,
		UptimeWakeMS: runloop.DefaultUptimeWakeMS,
		Serial: SerialConfig{
			Baud:          115200,
			ReadTimeoutMS: 100,
		},
		Console: ConsoleConfig{
			PauseKey: cmdl.KeyPause,
			MaxLine:  64,
			History:  8,
			Prompt:   "> ",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	def := Default()

	if c.ClockHz < 1000 {
		c.ClockHz = def.ClockHz
	}
	if c.MaxTasks <= 0 {
		c.MaxTasks = def.MaxTasks
	}
	if c.MaxTasks > 255 {
		c.MaxTasks = 255
	}
	if c.Serial.Baud <= 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Serial.ReadTimeoutMS < 0 {
		c.Serial.ReadTimeoutMS = 0
	}
	if c.Console.PauseKey < 0 || c.Console.PauseKey > 0xFF {
		c.Console.PauseKey = def.Console.PauseKey
	}
	if c.Console.MaxLine <= 0 {
		c.Console.MaxLine = def.Console.MaxLine
	}
	if c.Console.History <= 0 {
		c.Console.History = def.Console.History
	}
}

// Runloop returns the scheduler configuration
func (c Config) Runloop() runloop.Config {
	return runloop.Config{
		ClockHz:      c.ClockHz,
		MaxTasks:     c.MaxTasks,
		UptimeWakeMS: c.UptimeWakeMS,
	}
}

// ConsoleConfig returns the command interpreter configuration
func (c Config) ConsoleConfig() cmdl.Config {
	cc := cmdl.DefaultConfig()
	cc.PauseKey = byte(c.Console.PauseKey)
	cc.MaxLine = c.Console.MaxLine
	cc.History = c.Console.History
	cc.Prompt = c.Console.Prompt
	return cc
}

// SerialPort returns the serial port configuration
func (c Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeoutMS,
	}
}

// internal/config/config.go
package config

import "github.com/tamzrod/modbus-gateway/internal/mapper"

type Config struct {
	Source   SourceConfig     `yaml:"source" toml:"source"`
	Sink     SinkConfig       `yaml:"sink" toml:"sink"`
	Poll     PollConfig       `yaml:"poll" toml:"poll"`
	Mappings []mapper.Mapping `yaml:"mappings" toml:"mappings"` // empty => built-in EM24 -> WattNode table
	Web      WebConfig        `yaml:"web" toml:"web"`
	Influx   InfluxConfig     `yaml:"influx" toml:"influx"`
	Log      LogConfig        `yaml:"log" toml:"log"`
}

// ---- SOURCE (meter being polled) ----

type SourceConfig struct {
	Endpoint   string `yaml:"endpoint" toml:"endpoint" default:"192.168.20.2:502"`
	UnitID     uint8  `yaml:"unit_id" toml:"unit_id" default:"1"`
	TimeoutMs  int    `yaml:"timeout_ms" toml:"timeout_ms" default:"1000"`
	FC         uint8  `yaml:"fc" toml:"fc" default:"4"`
	SchemaFile string `yaml:"schema_file" toml:"schema_file"` // empty => built-in EM24
}

// ---- SINK (emulated meter served to the master) ----

type SinkConfig struct {
	URL        string `yaml:"url" toml:"url" default:"tcp://0.0.0.0:5020"`
	UnitID     uint8  `yaml:"unit_id" toml:"unit_id" default:"2"`
	TimeoutMs  int    `yaml:"timeout_ms" toml:"timeout_ms" default:"30000"` // idle client timeout
	MaxClients uint   `yaml:"max_clients" toml:"max_clients" default:"4"`
	SchemaFile string `yaml:"schema_file" toml:"schema_file"` // empty => built-in WattNode

	// Device status block (optional, opt-in)
	StatusAddress *uint16 `yaml:"status_address" toml:"status_address"`
	DeviceName    string  `yaml:"device_name" toml:"device_name" default:"EM24"`
}

// ---- POLL ----

type PollConfig struct {
	LoopDelayMs int           `yaml:"loop_delay_ms" toml:"loop_delay_ms" default:"20"`
	Schedule    []TimerConfig `yaml:"schedule" toml:"schedule"` // empty => DefaultSchedule
}

type TimerConfig struct {
	IntervalMs int      `yaml:"interval_ms" toml:"interval_ms"`
	Blocks     []string `yaml:"blocks" toml:"blocks"`
}

// DefaultSchedule polls instantaneous values twice a second and
// counters once a second.
func DefaultSchedule() []TimerConfig {
	return []TimerConfig{
		{IntervalMs: 500, Blocks: []string{"dynamic"}},
		{IntervalMs: 1000, Blocks: []string{"energy", "time", "tariff"}},
	}
}

// ---- DIAGNOSTICS ----

type WebConfig struct {
	Listen string `yaml:"listen" toml:"listen"` // empty => disabled
}

type InfluxConfig struct {
	URL         string `yaml:"url" toml:"url"` // empty => disabled
	Token       string `yaml:"token" toml:"token"`
	Org         string `yaml:"org" toml:"org"`
	Bucket      string `yaml:"bucket" toml:"bucket"`
	Measurement string `yaml:"measurement" toml:"measurement" default:"em24"`
}

type LogConfig struct {
	Level       string `yaml:"level" toml:"level" default:"info"`
	Development bool   `yaml:"development" toml:"development"`

	// Optional rotated log file, in addition to stderr.
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb" default:"10"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups" default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days" default:"28"`
}

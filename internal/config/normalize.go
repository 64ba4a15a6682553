// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/modbus-gateway/internal/status"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// DEVICE STATUS BLOCK NORMALIZATION (OPT-IN)
	// ------------------------------------------------------------

	// Normalize device_name:
	// - ASCII already validated
	// - Truncate to max 16 characters
	if len(cfg.Sink.DeviceName) > status.DeviceNameMaxChars {
		cfg.Sink.DeviceName = cfg.Sink.DeviceName[:status.DeviceNameMaxChars]
	}

	// ------------------------------------------------------------
	// NAMES
	// ------------------------------------------------------------

	for i := range cfg.Poll.Schedule {
		for j, b := range cfg.Poll.Schedule[i].Blocks {
			cfg.Poll.Schedule[i].Blocks[j] = strings.TrimSpace(b)
		}
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

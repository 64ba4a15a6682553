// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/register"
	"github.com/tamzrod/modbus-gateway/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// SOURCE
	// ------------------------------------------------------------

	if cfg.Source.Endpoint == "" {
		return fmt.Errorf("source: endpoint required")
	}
	if cfg.Source.FC != 3 && cfg.Source.FC != 4 {
		return fmt.Errorf("source: fc must be 3 or 4, got %d", cfg.Source.FC)
	}
	if cfg.Source.TimeoutMs <= 0 {
		return fmt.Errorf("source: timeout_ms must be > 0")
	}

	// ------------------------------------------------------------
	// SINK
	// ------------------------------------------------------------

	if !strings.HasPrefix(cfg.Sink.URL, "tcp://") {
		return fmt.Errorf("sink: url %q must start with tcp://", cfg.Sink.URL)
	}

	// device_name sanity (ASCII only)
	for i := 0; i < len(cfg.Sink.DeviceName); i++ {
		if cfg.Sink.DeviceName[i] > 0x7F {
			return fmt.Errorf("sink: device_name must contain ASCII characters only")
		}
	}

	if cfg.Sink.StatusAddress != nil {
		end := uint32(*cfg.Sink.StatusAddress) + status.SlotsPerDevice - 1
		if end > 0xFFFF {
			return fmt.Errorf("sink: status block at %d runs past address 65535", *cfg.Sink.StatusAddress)
		}
	}

	// ------------------------------------------------------------
	// SCHEDULE
	// ------------------------------------------------------------

	if cfg.Poll.LoopDelayMs <= 0 {
		return fmt.Errorf("poll: loop_delay_ms must be > 0")
	}

	// a block belongs to at most one timer
	owner := make(map[string]int)

	for i, t := range cfg.Poll.Schedule {
		if t.IntervalMs <= 0 {
			return fmt.Errorf("poll: schedule[%d]: interval_ms must be > 0", i)
		}
		if len(t.Blocks) == 0 {
			return fmt.Errorf("poll: schedule[%d]: at least one block required", i)
		}
		for _, b := range t.Blocks {
			if prev, exists := owner[b]; exists {
				return fmt.Errorf("poll: block %q scheduled by timers %d and %d", b, prev, i)
			}
			owner[b] = i
		}
	}

	// ------------------------------------------------------------
	// MAPPINGS (shape only; names are checked against schemas later)
	// ------------------------------------------------------------

	for i, m := range cfg.Mappings {
		if m.Dest == "" {
			return fmt.Errorf("mappings[%d]: dest required", i)
		}
		if len(m.Terms) == 0 {
			return fmt.Errorf("mappings[%d] (%s): at least one term required", i, m.Dest)
		}
		for _, t := range m.Terms {
			if t.Field == "" {
				return fmt.Errorf("mappings[%d] (%s): term without field", i, m.Dest)
			}
			if t.Divisor != nil && *t.Divisor <= 0 {
				return fmt.Errorf("mappings[%d] (%s): divisor must be > 0", i, m.Dest)
			}
			if t.Weight != nil && *t.Weight == 0 {
				return fmt.Errorf("mappings[%d] (%s): weight must not be 0", i, m.Dest)
			}
		}
	}

	// ------------------------------------------------------------
	// DIAGNOSTICS
	// ------------------------------------------------------------

	if cfg.Influx.URL != "" && (cfg.Influx.Org == "" || cfg.Influx.Bucket == "") {
		return fmt.Errorf("influx: org and bucket required when url is set")
	}

	if _, err := zap.ParseAtomicLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}

// ValidateLayout checks that the status block does not overlap any
// block of the sink schema. Schema-dependent, so it runs after the
// schemas are built.
func ValidateLayout(cfg *Config, sink *register.Schema) error {
	type span struct {
		start uint32
		end   uint32
		owner string
	}

	if cfg.Sink.StatusAddress == nil {
		return nil
	}

	spans := make([]span, 0, len(sink.Blocks()))
	for _, b := range sink.Blocks() {
		spans = append(spans, span{
			start: uint32(b.BaseAddress),
			end:   uint32(b.BaseAddress) + uint32(b.TotalWords) - 1,
			owner: b.Name,
		})
	}

	start := uint32(*cfg.Sink.StatusAddress)
	end := start + status.SlotsPerDevice - 1

	for _, s := range spans {
		// overlap check (inclusive)
		if !(end < s.start || start > s.end) {
			return fmt.Errorf(
				"sink: status block range=%d-%d overlaps block %q range=%d-%d",
				start,
				end,
				s.owner,
				s.start,
				s.end,
			)
		}
	}

	return nil
}

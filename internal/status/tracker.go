// internal/status/tracker.go
package status

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/poller"
)

// Writer is the register memory the block is written into.
type Writer interface {
	WriteWords(addr uint16, words []uint16) error
}

// Tracker owns the status snapshot of the source meter.
// Outcomes arrive from the control loop, the seconds counter from a
// 1 Hz ticker. Every change rewrites the whole block.
type Tracker struct {
	mu         sync.Mutex
	w          Writer
	base       uint16
	nameRegs   []uint16
	staleAfter time.Duration
	log        *zap.Logger

	snap   Snapshot
	lastOK time.Time
}

// NewTracker writes the initial (unknown) block at base.
// staleAfter <= 0 disables the stale state.
func NewTracker(w Writer, base uint16, deviceName string, staleAfter time.Duration, log *zap.Logger) (*Tracker, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{
		w:          w,
		base:       base,
		nameRegs:   EncodeDeviceName(deviceName),
		staleAfter: staleAfter,
		log:        log.With(zap.String("module", "status")),
		snap:       Snapshot{Health: HealthUnknown},
	}

	// Full block write on start (identity re-assert).
	if err := t.write(); err != nil {
		return nil, errors.Wrap(err, "status: initial write")
	}
	return t, nil
}

// Observe implements poller.Observer.
func (t *Tracker) Observe(o poller.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false

	if o.Code == poller.ResultSuccess && !o.Reset {
		t.lastOK = o.At

		// Recovery / OK
		changed = t.set(&t.snap.Health, HealthOK) || changed
		// Reset last error code and seconds-in-error when healthy.
		changed = t.set(&t.snap.LastErrorCode, ErrorNone) || changed
		changed = t.set(&t.snap.SecondsInError, 0) || changed
	} else {
		changed = t.set(&t.snap.Health, HealthError) || changed
		changed = t.set(&t.snap.LastErrorCode, ErrorCode(o)) || changed

		// NOTE: seconds_in_error increments on the 1Hz tick only.
	}

	if changed {
		t.writeLogged()
	}
}

// Tick advances seconds_in_error while not OK and marks OK data stale
// once no read succeeded for staleAfter.
func (t *Tracker) Tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false

	if t.snap.Health == HealthOK && t.staleAfter > 0 && now.Sub(t.lastOK) > t.staleAfter {
		t.snap.Health = HealthStale
		changed = true
	}

	if t.snap.Health != HealthOK && t.snap.Health != HealthUnknown {
		// HARD INVARIANT: seconds_in_error MUST NOT wrap
		if t.snap.SecondsInError < 65535 {
			t.snap.SecondsInError++
			changed = true
		}
	}

	if changed {
		t.writeLogged()
	}
}

// Run ticks once per second until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

func (t *Tracker) set(dst *uint16, v uint16) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}

func (t *Tracker) write() error {
	return t.w.WriteWords(t.base, Encode(t.snap, t.nameRegs))
}

func (t *Tracker) writeLogged() {
	if err := t.write(); err != nil {
		t.log.Warn("status write failed", zap.Error(err))
	}
}

// ErrorCode extracts a best-effort uint16 code from an outcome without
// assuming concrete error types. Unknown failures map to ErrorGeneric.
func ErrorCode(o poller.Outcome) uint16 {
	switch {
	case o.Reset:
		return ErrorReset
	case o.Code == poller.ResultSuccess:
		return ErrorNone
	case o.Code == poller.ResultTimeout:
		return ErrorTimeout
	}

	if o.Err == nil {
		return ErrorGeneric
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }
	type coderC interface{ ModbusCode() uint16 }

	var a coderA
	if errors.As(o.Err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(o.Err, &b) {
		return b.ErrorCode()
	}
	var c coderC
	if errors.As(o.Err, &c) {
		return c.ModbusCode()
	}

	return ErrorGeneric
}

// internal/status/status_test.go
package status

import (
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/modbus-gateway/internal/poller"
)

type fakeWriter struct {
	writes []write
	fail   bool
}

type write struct {
	addr uint16
	regs []uint16
}

func (f *fakeWriter) WriteWords(addr uint16, words []uint16) error {
	if f.fail {
		return errors.New("boom")
	}
	f.writes = append(f.writes, write{addr: addr, regs: append([]uint16(nil), words...)})
	return nil
}

func (f *fakeWriter) last(t *testing.T) write {
	t.Helper()
	if len(f.writes) == 0 {
		t.Fatalf("no writes")
	}
	return f.writes[len(f.writes)-1]
}

type codedErr struct{ code uint16 }

func (e codedErr) Error() string      { return "coded" }
func (e codedErr) ModbusCode() uint16 { return e.code }

// ---- encode ----

func TestEncodeDeviceName(t *testing.T) {
	regs := EncodeDeviceName("EM24\x01")
	if len(regs) != SlotDeviceNameSlots {
		t.Fatalf("expected %d regs, got %d", SlotDeviceNameSlots, len(regs))
	}
	if regs[0] != uint16('E')<<8|'M' || regs[1] != uint16('2')<<8|'4' {
		t.Fatalf("unexpected packing: %04x %04x", regs[0], regs[1])
	}
	if regs[2] != uint16('?')<<8 {
		t.Fatalf("non-printable not sanitized: %04x", regs[2])
	}
	for i := 3; i < len(regs); i++ {
		if regs[i] != 0 {
			t.Fatalf("reg %d not zero", i)
		}
	}
}

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{Health: HealthError, LastErrorCode: 2, SecondsInError: 9}, EncodeDeviceName("ABCDEFGHIJKLMNOPQRS"))

	if len(regs) != SlotsPerDevice {
		t.Fatalf("expected %d regs", SlotsPerDevice)
	}
	if regs[SlotHealthCode] != HealthError || regs[SlotLastErrorCode] != 2 || regs[SlotSecondsInError] != 9 {
		t.Fatalf("status slots wrong: %v", regs[:3])
	}
	for i := SlotReservedStart; i <= SlotReservedEnd; i++ {
		if regs[i] != 0 {
			t.Fatalf("reserved slot %d not zero", i)
		}
	}
	if regs[SlotDeviceNameEnd] != uint16('O')<<8|'P' {
		t.Fatalf("name truncated wrong: %04x", regs[SlotDeviceNameEnd])
	}
}

// ---- tracker ----

func TestTracker_InitialWrite(t *testing.T) {
	w := &fakeWriter{}
	if _, err := NewTracker(w, 3000, "EM24", 0, nil); err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	got := w.last(t)
	if got.addr != 3000 || got.regs[SlotHealthCode] != HealthUnknown {
		t.Fatalf("unexpected initial write: %+v", got)
	}

	if _, err := NewTracker(&fakeWriter{fail: true}, 3000, "EM24", 0, nil); err == nil {
		t.Fatalf("expected error on failed initial write")
	}
}

func TestTracker_ErrorThenRecovery(t *testing.T) {
	w := &fakeWriter{}
	tr, err := NewTracker(w, 0, "x", 0, nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	t0 := time.Unix(100, 0)

	tr.Observe(poller.Outcome{Code: poller.ResultTimeout, At: t0})
	if s := tr.Snapshot(); s.Health != HealthError || s.LastErrorCode != ErrorTimeout {
		t.Fatalf("unexpected snapshot: %+v", s)
	}

	tr.Tick(t0.Add(time.Second))
	tr.Tick(t0.Add(2 * time.Second))
	if s := tr.Snapshot(); s.SecondsInError != 2 {
		t.Fatalf("seconds_in_error=%d", s.SecondsInError)
	}

	n := len(w.writes)
	tr.Observe(poller.Outcome{Code: poller.ResultTimeout, At: t0})
	if len(w.writes) != n {
		t.Fatalf("unchanged snapshot must not be rewritten")
	}

	tr.Observe(poller.Outcome{Code: poller.ResultSuccess, At: t0.Add(3 * time.Second)})
	if s := tr.Snapshot(); s != (Snapshot{Health: HealthOK}) {
		t.Fatalf("not recovered: %+v", s)
	}
	if w.last(t).regs[SlotHealthCode] != HealthOK {
		t.Fatalf("recovery not written")
	}
}

func TestTracker_SecondsSaturate(t *testing.T) {
	tr, _ := NewTracker(&fakeWriter{}, 0, "", 0, nil)
	tr.Observe(poller.Outcome{Code: poller.ResultError})
	tr.snap.SecondsInError = 65534

	tr.Tick(time.Now())
	tr.Tick(time.Now())
	if s := tr.Snapshot(); s.SecondsInError != 65535 {
		t.Fatalf("seconds_in_error=%d", s.SecondsInError)
	}
}

func TestTracker_UnknownDoesNotCount(t *testing.T) {
	tr, _ := NewTracker(&fakeWriter{}, 0, "", 0, nil)
	tr.Tick(time.Now())
	if s := tr.Snapshot(); s.SecondsInError != 0 {
		t.Fatalf("seconds_in_error=%d", s.SecondsInError)
	}
}

func TestTracker_Stale(t *testing.T) {
	tr, _ := NewTracker(&fakeWriter{}, 0, "", 5*time.Second, nil)
	t0 := time.Unix(100, 0)

	tr.Observe(poller.Outcome{Code: poller.ResultSuccess, At: t0})
	tr.Tick(t0.Add(5 * time.Second))
	if s := tr.Snapshot(); s.Health != HealthOK {
		t.Fatalf("stale too early: %+v", s)
	}

	tr.Tick(t0.Add(6 * time.Second))
	if s := tr.Snapshot(); s.Health != HealthStale {
		t.Fatalf("expected stale: %+v", s)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		name string
		o    poller.Outcome
		want uint16
	}{
		{"success", poller.Outcome{Code: poller.ResultSuccess}, 0},
		{"timeout", poller.Outcome{Code: poller.ResultTimeout}, ErrorTimeout},
		{"reset", poller.Outcome{Code: poller.ResultTimeout, Reset: true}, ErrorReset},
		{"plain error", poller.Outcome{Code: poller.ResultError, Err: errors.New("x")}, ErrorGeneric},
		{"no error value", poller.Outcome{Code: poller.ResultError}, ErrorGeneric},
		{"exception", poller.Outcome{Code: poller.ResultException, Err: codedErr{0x82}}, 0x82},
	}

	for _, tc := range cases {
		if got := ErrorCode(tc.o); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

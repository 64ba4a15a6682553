// internal/poller/poller_test.go
package poller

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tamzrod/modbus-gateway/internal/register"
	"github.com/tamzrod/modbus-gateway/internal/store"
)

// ---- fakes ----

type fakeRead struct {
	id        uint16
	addr, qty uint16
}

type fakeTransport struct {
	connected  bool
	connectErr error
	readErr    error

	nextID uint16
	reads  []fakeRead
	ch     chan Completion

	connects, disconnects, drops int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true, ch: make(chan Completion, 256)}
}

func (f *fakeTransport) Read(addr, qty uint16) (uint16, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	f.nextID++
	f.reads = append(f.reads, fakeRead{id: f.nextID, addr: addr, qty: qty})
	return f.nextID, nil
}

func (f *fakeTransport) Completions() <-chan Completion { return f.ch }

func (f *fakeTransport) Connect() error {
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) IsConnected() bool { return f.connected }

func (f *fakeTransport) Disconnect() error {
	f.disconnects++
	f.connected = false
	return nil
}

func (f *fakeTransport) DropAllPending() { f.drops++ }

type countingRefresher struct{ n int }

func (r *countingRefresher) Refresh() int { r.n++; return 0 }

func testStore(t *testing.T) *store.ValueStore {
	t.Helper()
	s, err := register.NewSchema("em24", []register.Block{
		{Name: "dynamic", Descriptors: []register.Descriptor{
			{Name: "l1_voltage", Address: 0, WordCount: 2, Type: register.Int32, Scale: 10},
		}},
		{Name: "energy", Descriptors: []register.Descriptor{
			{Name: "import_energy_active", Address: 0x34, WordCount: 2, Type: register.Int32, Scale: 10},
			{Name: "export_energy_active", Address: 0x36, WordCount: 2, Type: register.Int32, Scale: 10},
		}},
		{Name: "time", Descriptors: []register.Descriptor{
			{Name: "hour", Address: 0x5a, WordCount: 2, Type: register.Int32, Scale: 100},
		}},
		{Name: "tariff", Descriptors: []register.Descriptor{
			{Name: "broken", Address: 0x6e, WordCount: 2, Type: register.Int32, Scale: 10},
			{Name: "gap", Address: 0x71, WordCount: 2, Type: register.Int32, Scale: 10},
		}},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store.NewValueStore(s)
}

func newCorrelator(t *testing.T) (*Correlator, *fakeTransport, *store.ValueStore, *countingRefresher) {
	tr := newFakeTransport()
	vs := testStore(t)
	r := &countingRefresher{}
	return NewCorrelator(tr, vs, r, zaptest.NewLogger(t)), tr, vs, r
}

// ---- correlator ----

func TestIssue_BoundedPending(t *testing.T) {
	c, tr, vs, _ := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")

	for i := 0; i < MaxPending+1; i++ {
		require.True(t, c.Issue(dyn))
	}

	p := c.Pending()
	require.Len(t, p, MaxPending)
	assert.Equal(t, uint16(2), p[0].ID) // first-issued evicted
	assert.Equal(t, uint16(MaxPending+1), p[len(p)-1].ID)
	assert.Equal(t, uint64(1), c.Stats().Evicted)
	assert.Equal(t, MaxPending, c.Stats().Pending)

	assert.Equal(t, fakeRead{id: 1, addr: 0, qty: 2}, tr.reads[0])
	assert.Equal(t, uint16(MaxPending+1), dyn.PendingID)
}

func TestIssue_TransportRefuses(t *testing.T) {
	c, tr, vs, _ := newCorrelator(t)
	tr.readErr = errors.New("queue full")

	dyn, _ := vs.Block("dynamic")
	assert.False(t, c.Issue(dyn))
	assert.Empty(t, c.Pending())
	assert.Zero(t, dyn.PendingID)
}

func TestOnCompletion_SuccessCommitsAndRefreshes(t *testing.T) {
	c, _, vs, r := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")
	en, _ := vs.Block("energy")

	require.True(t, c.Issue(dyn)) // id 1
	require.True(t, c.Issue(en))  // id 2

	// out of order
	c.OnCompletion(Completion{ID: 2, Code: ResultSuccess, Words: []uint16{1000, 0, 200, 0}})
	c.OnCompletion(Completion{ID: 1, Code: ResultSuccess, Words: []uint16{2300, 0}})

	assert.Equal(t, 2, r.n)
	assert.Empty(t, c.Pending())

	v, err := vs.FieldValue("import_energy_active")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
	v, _ = vs.FieldValue("export_energy_active")
	assert.Equal(t, 20.0, v)
	v, _ = vs.FieldValue("l1_voltage")
	assert.Equal(t, 230.0, v)

	assert.Zero(t, dyn.PendingID)
	assert.Equal(t, uint16(2), en.LastID)
}

func TestOnCompletion_UnknownIDIgnored(t *testing.T) {
	c, tr, vs, r := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")
	require.True(t, c.Issue(dyn))

	c.OnCompletion(Completion{ID: 99, Code: ResultSuccess, Words: []uint16{1, 2}})
	c.OnCompletion(Completion{ID: 98, Code: ResultTimeout})
	c.OnCompletion(Completion{ID: 97, Code: ResultTimeout})

	assert.Zero(t, r.n)
	assert.Equal(t, []uint16{0, 0}, dyn.Words)
	assert.Len(t, c.Pending(), 1)
	assert.False(t, c.TimedOutOnce())
	assert.Zero(t, tr.disconnects)
	assert.Equal(t, uint64(3), c.Stats().Unknown)
}

func TestOnCompletion_WrongLengthDiscarded(t *testing.T) {
	c, _, vs, r := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")
	require.True(t, c.Issue(dyn))

	c.OnCompletion(Completion{ID: 1, Code: ResultSuccess, Words: []uint16{1}})

	assert.Zero(t, r.n)
	assert.False(t, dyn.HasData())
	assert.Equal(t, uint64(1), c.Stats().Errors)
}

func TestOnCompletion_ErrorKeepsValues(t *testing.T) {
	c, tr, vs, r := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")

	require.True(t, c.Issue(dyn))
	c.OnCompletion(Completion{ID: 1, Code: ResultSuccess, Words: []uint16{2300, 0}})
	require.True(t, c.Issue(dyn))
	c.OnCompletion(Completion{ID: 2, Code: ResultException, Err: errors.New("illegal data address")})

	assert.Equal(t, 1, r.n)
	v, _ := vs.FieldValue("l1_voltage")
	assert.Equal(t, 230.0, v)
	assert.Zero(t, tr.disconnects)
}

func TestTimeout_TwoStrikes(t *testing.T) {
	c, tr, vs, _ := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")

	for i := 0; i < 5; i++ {
		require.True(t, c.Issue(dyn))
	}

	c.OnCompletion(Completion{ID: 1, Code: ResultTimeout})
	assert.True(t, c.TimedOutOnce())
	assert.Zero(t, tr.disconnects)
	assert.True(t, tr.connected)
	assert.Len(t, c.Pending(), 4)

	c.OnCompletion(Completion{ID: 2, Code: ResultTimeout})
	assert.False(t, c.TimedOutOnce())
	assert.Equal(t, 1, tr.disconnects)
	assert.Equal(t, 1, tr.drops)
	assert.False(t, tr.connected)
	assert.Empty(t, c.Pending())
	assert.Zero(t, dyn.PendingID)
	assert.Equal(t, uint64(1), c.Stats().Resets)

	// late completion of a dropped request is ignored
	c.OnCompletion(Completion{ID: 3, Code: ResultSuccess, Words: []uint16{1, 1}})
	assert.False(t, dyn.HasData())
}

func TestTimeout_SuccessClearsFlag(t *testing.T) {
	c, tr, vs, _ := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")
	for i := 0; i < 3; i++ {
		require.True(t, c.Issue(dyn))
	}

	c.OnCompletion(Completion{ID: 1, Code: ResultTimeout})
	c.OnCompletion(Completion{ID: 2, Code: ResultSuccess, Words: []uint16{1, 0}})
	assert.False(t, c.TimedOutOnce())
	c.OnCompletion(Completion{ID: 3, Code: ResultTimeout})

	assert.Zero(t, tr.disconnects)
	assert.True(t, c.TimedOutOnce())
}

func TestTimeout_ErrorDoesNotClearFlag(t *testing.T) {
	c, tr, vs, _ := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")
	for i := 0; i < 3; i++ {
		require.True(t, c.Issue(dyn))
	}

	c.OnCompletion(Completion{ID: 1, Code: ResultTimeout})
	c.OnCompletion(Completion{ID: 2, Code: ResultError, Err: errors.New("broken pipe")})
	c.OnCompletion(Completion{ID: 3, Code: ResultTimeout})

	assert.Equal(t, 1, tr.disconnects)
}

func TestObserver(t *testing.T) {
	c, _, vs, _ := newCorrelator(t)
	dyn, _ := vs.Block("dynamic")

	var got []Outcome
	c.Subscribe(ObserverFunc(func(o Outcome) { got = append(got, o) }))

	require.True(t, c.Issue(dyn))
	require.True(t, c.Issue(dyn))
	require.True(t, c.Issue(dyn))
	c.OnCompletion(Completion{ID: 1, Code: ResultSuccess, Words: []uint16{1, 0}})
	c.OnCompletion(Completion{ID: 2, Code: ResultTimeout})
	c.OnCompletion(Completion{ID: 3, Code: ResultTimeout})
	c.OnCompletion(Completion{ID: 4, Code: ResultTimeout}) // unknown: not reported

	require.Len(t, got, 3)
	assert.Equal(t, ResultSuccess, got[0].Code)
	assert.Equal(t, "dynamic", got[0].Block)
	assert.False(t, got[1].Reset)
	assert.True(t, got[2].Reset)
}

// ---- scheduler ----

func TestScheduler_FixedPeriodNoCatchUp(t *testing.T) {
	vs := testStore(t)
	t0 := time.Unix(1000, 0)

	s, err := NewScheduler(DefaultTimers(), vs, t0, zaptest.NewLogger(t))
	require.NoError(t, err)

	s.Tick(t0.Add(100 * time.Millisecond))
	assert.Zero(t, s.Len())

	s.Tick(t0.Add(500 * time.Millisecond))
	assert.Equal(t, 1, s.Len())

	// 3s late: each timer fires once, no catch-up
	s.Tick(t0.Add(3500 * time.Millisecond))
	assert.Equal(t, 1+1+2, s.Len()) // tariff was rejected by validation

	// reference moved to the late tick
	s.Tick(t0.Add(3900 * time.Millisecond))
	assert.Equal(t, 4, s.Len())

	var order []string
	for {
		j, ok := s.Next()
		if !ok {
			break
		}
		order = append(order, j.Block.Name)
	}
	assert.Equal(t, []string{"dynamic", "dynamic", "energy", "time"}, order)
}

func TestScheduler_Rejects(t *testing.T) {
	vs := testStore(t)

	_, err := NewScheduler([]TimerSpec{{Interval: 0, Blocks: []string{"dynamic"}}}, vs, time.Time{}, nil)
	assert.Error(t, err)

	_, err = NewScheduler([]TimerSpec{{Interval: time.Second, Blocks: []string{"tariff", "nope"}}}, vs, time.Time{}, nil)
	assert.Error(t, err)
}

// ---- poller loop ----

func newPoller(t *testing.T) (*Poller, *fakeTransport, *store.ValueStore, *countingRefresher) {
	tr := newFakeTransport()
	vs := testStore(t)
	r := &countingRefresher{}
	p, err := New(Config{LoopDelay: DefaultLoopDelay, Timers: DefaultTimers()}, tr, vs, r, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p, tr, vs, r
}

func TestNew_Validation(t *testing.T) {
	vs := testStore(t)
	r := &countingRefresher{}

	_, err := New(Config{LoopDelay: 0, Timers: DefaultTimers()}, newFakeTransport(), vs, r, nil)
	assert.Error(t, err)
	_, err = New(Config{LoopDelay: time.Millisecond, Timers: DefaultTimers()}, nil, vs, r, nil)
	assert.Error(t, err)
}

func TestStep_OneDispatchPerIteration(t *testing.T) {
	p, tr, _, _ := newPoller(t)
	now := time.Unix(2000, 0)

	p.Step(now) // all timers fire: dynamic, energy, time
	assert.Len(t, tr.reads, 1)
	assert.Equal(t, 2, p.Stats().Queued)

	p.Step(now.Add(20 * time.Millisecond))
	p.Step(now.Add(40 * time.Millisecond))
	assert.Len(t, tr.reads, 3)
	assert.Equal(t, uint16(0x34), tr.reads[1].addr)
	assert.Equal(t, uint16(4), tr.reads[1].qty)
	assert.Equal(t, uint16(0x5a), tr.reads[2].addr)

	p.Step(now.Add(60 * time.Millisecond))
	assert.Len(t, tr.reads, 3) // queue empty
}

func TestStep_DisconnectedConnectsAndDropsJob(t *testing.T) {
	p, tr, _, _ := newPoller(t)
	tr.connected = false
	now := time.Unix(2000, 0)

	p.Step(now)
	assert.Equal(t, 1, tr.connects)
	assert.Empty(t, tr.reads)
	assert.Equal(t, uint64(1), p.Stats().Dropped)

	// connected now: next job goes out, the dropped one is not requeued
	p.Step(now.Add(20 * time.Millisecond))
	require.Len(t, tr.reads, 1)
	assert.Equal(t, uint16(0x34), tr.reads[0].addr)
}

func TestStep_ConnectFailureReported(t *testing.T) {
	p, tr, _, _ := newPoller(t)
	tr.connected = false
	tr.connectErr = errors.New("connection refused")

	var got []Outcome
	p.Subscribe(ObserverFunc(func(o Outcome) { got = append(got, o) }))

	p.Step(time.Unix(2000, 0))
	require.Len(t, got, 1)
	assert.Equal(t, ResultError, got[0].Code)
}

func TestStep_DrainsCompletions(t *testing.T) {
	p, tr, vs, r := newPoller(t)
	now := time.Unix(2000, 0)

	p.Step(now)
	tr.ch <- Completion{ID: 1, Code: ResultSuccess, Words: []uint16{2300, 0}}
	p.Step(now.Add(20 * time.Millisecond))

	assert.Equal(t, 1, r.n)
	v, err := vs.FieldValue("l1_voltage")
	require.NoError(t, err)
	assert.Equal(t, 230.0, v)
	assert.Equal(t, uint64(1), p.Stats().Completed)
}

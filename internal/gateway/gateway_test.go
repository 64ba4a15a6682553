// internal/gateway/gateway_test.go
package gateway

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/mapper"
	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/status"
)

// meter answers every read synchronously from a fixed register image.
type meter struct {
	regs      map[uint16]uint16
	connected bool
	nextID    uint16
	ch        chan poller.Completion
}

func newMeter() *meter {
	return &meter{regs: map[uint16]uint16{}, connected: true, ch: make(chan poller.Completion, 64)}
}

func (m *meter) Read(addr, qty uint16) (uint16, error) {
	m.nextID++
	words := make([]uint16, qty)
	for i := range words {
		words[i] = m.regs[addr+uint16(i)]
	}
	m.ch <- poller.Completion{ID: m.nextID, Code: poller.ResultSuccess, Words: words}
	return m.nextID, nil
}

func (m *meter) Completions() <-chan poller.Completion { return m.ch }
func (m *meter) Connect() error                        { m.connected = true; return nil }
func (m *meter) IsConnected() bool                     { return m.connected }
func (m *meter) Disconnect() error                     { m.connected = false; return nil }
func (m *meter) DropAllPending()                       {}

func testConfig() *config.Config {
	statusAddr := uint16(3000)
	return &config.Config{
		Source: config.SourceConfig{Endpoint: "127.0.0.1:502", UnitID: 1, TimeoutMs: 1000, FC: 4},
		Sink: config.SinkConfig{
			URL:           "tcp://127.0.0.1:5020",
			UnitID:        2,
			TimeoutMs:     1000,
			MaxClients:    1,
			StatusAddress: &statusAddr,
			DeviceName:    "EM24",
		},
		Poll: config.PollConfig{LoopDelayMs: 20, Schedule: config.DefaultSchedule()},
		Log:  config.LogConfig{Level: "info"},
	}
}

func sinkWords(t *testing.T, g *Gateway, field string) []uint16 {
	t.Helper()
	_, d, ok := g.Sink.Schema().Field(field)
	require.True(t, ok, field)
	words, err := g.Sink.ReadWords(d.Address, d.WordCount)
	require.NoError(t, err)
	return words
}

func TestGateway_EnergyTranslation(t *testing.T) {
	m := newMeter()
	m.regs[0x34] = 1000 // import 100.0 kWh
	m.regs[0x4e] = 200  // export 20.0 kWh

	g, err := assemble(testConfig(), m, zaptest.NewLogger(t))
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	for i := 0; i < 5; i++ {
		g.poller.Step(now)
	}

	v, err := g.Source.FieldValue("import_energy_active")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	assert.Equal(t, []uint16{0x42F0, 0x0000}, sinkWords(t, g, "energy_active"))
	third := math.Float32bits(float32(20.0 / 3))
	assert.Equal(t, []uint16{uint16(third >> 16), uint16(third)}, sinkWords(t, g, "l1_export_energy_active"))
	assert.Equal(t, []uint16{0x40D5, 0x5555}, sinkWords(t, g, "l1_export_energy_active"))

	v, err = g.Sink.FieldValue("l1_export_energy_active")
	require.NoError(t, err)
	assert.InDelta(t, 6.666, v, 0.001)

	// status block is healthy and carries the device name
	st, err := g.Sink.ReadWords(3000, status.SlotsPerDevice)
	require.NoError(t, err)
	assert.Equal(t, status.HealthOK, st[status.SlotHealthCode])
	assert.Equal(t, uint16('E')<<8|'M', st[status.SlotDeviceNameStart])

	stats := g.Stats()
	assert.Equal(t, uint64(4), stats.Completed)
	assert.Zero(t, stats.Pending)
}

func TestGateway_DefaultsServedBeforeFirstRead(t *testing.T) {
	g, err := assemble(testConfig(), newMeter(), zaptest.NewLogger(t))
	require.NoError(t, err)

	v, err := g.Sink.FieldValue("passcode")
	require.NoError(t, err)
	assert.NotZero(t, v)

	// nothing mapped until the first read
	assert.Equal(t, []uint16{0, 0}, sinkWords(t, g, "energy_active"))
}

func TestAssemble_Rejects(t *testing.T) {
	t.Run("status block overlaps sink schema", func(t *testing.T) {
		c := testConfig()
		addr := uint16(1000)
		c.Sink.StatusAddress = &addr
		_, err := assemble(c, newMeter(), nil)
		assert.Error(t, err)
	})

	t.Run("mapping to unknown field", func(t *testing.T) {
		c := testConfig()
		c.Mappings = []mapper.Mapping{mapper.Identity("nope", "import_energy_active")}
		_, err := assemble(c, newMeter(), nil)
		assert.Error(t, err)
	})

	t.Run("schedule without known blocks", func(t *testing.T) {
		c := testConfig()
		c.Poll.Schedule = []config.TimerConfig{{IntervalMs: 100, Blocks: []string{"nope"}}}
		_, err := assemble(c, newMeter(), nil)
		assert.Error(t, err)
	})

	t.Run("missing schema file", func(t *testing.T) {
		c := testConfig()
		c.Source.SchemaFile = "/does/not/exist.yaml"
		_, err := assemble(c, newMeter(), nil)
		assert.Error(t, err)
	})
}

func TestAssemble_PollDefaults(t *testing.T) {
	c := testConfig()
	c.Poll = config.PollConfig{}

	g, err := assemble(c, newMeter(), nil)
	require.NoError(t, err)

	g.poller.Step(time.Unix(1000, 0))
	assert.Equal(t, 3, g.Stats().Queued) // dynamic went out, energy/time/tariff wait
}

func TestBuild_RejectsBadSource(t *testing.T) {
	c := testConfig()
	c.Source.FC = 6
	_, err := Build(c, nil)
	assert.Error(t, err)
}

func TestGateway_RunStopsOnCancel(t *testing.T) {
	c := testConfig()
	c.Sink.URL = "tcp://127.0.0.1:0"
	c.Sink.StatusAddress = nil

	g, err := assemble(c, newMeter(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.True(t, g.Source.HasData("import_energy_active"))
}

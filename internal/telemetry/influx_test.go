// internal/telemetry/influx_test.go
package telemetry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/register"
	"github.com/tamzrod/modbus-gateway/internal/store"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushed int
	errCh   chan error
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	f.flushed++
	f.mu.Unlock()
}

func (f *fakeWriter) Errors() <-chan error { return f.errCh }

func valueStore(t *testing.T) *store.ValueStore {
	t.Helper()
	s, err := register.NewSchema("em24", []register.Block{
		{Name: "energy", Descriptors: []register.Descriptor{
			{Name: "import_energy_active", Address: 0x34, WordCount: 2, Type: register.Int32, Scale: 10},
			{Name: "export_energy_active", Address: 0x36, WordCount: 2, Type: register.Int32, Scale: 10},
		}},
	}, nil)
	require.NoError(t, err)
	return store.NewValueStore(s)
}

func TestExporter_WritesOnSuccess(t *testing.T) {
	vs := valueStore(t)
	fw := &fakeWriter{errCh: make(chan error)}
	e := newExporter(fw, vs, Config{Measurement: "em24", Device: "EM24"}, nil)

	at := time.Unix(1700000000, 0)

	// nothing read yet
	e.Observe(poller.Outcome{Block: "energy", Code: poller.ResultSuccess, At: at})
	assert.Empty(t, fw.points)

	snap, _ := vs.Block("energy")
	require.NoError(t, vs.Commit(snap, 1, []uint16{1000, 0, 200, 0}, at))

	e.Observe(poller.Outcome{Block: "energy", Code: poller.ResultTimeout, At: at})
	e.Observe(poller.Outcome{Code: poller.ResultSuccess, Reset: true, At: at})
	assert.Empty(t, fw.points)

	e.Observe(poller.Outcome{Block: "energy", Code: poller.ResultSuccess, At: at})
	require.Len(t, fw.points, 1)

	p := fw.points[0]
	assert.Equal(t, "em24", p.Name())
	assert.Equal(t, at, p.Time())

	tags := map[string]string{}
	for _, tg := range p.TagList() {
		tags[tg.Key] = tg.Value
	}
	assert.Equal(t, map[string]string{"device": "EM24", "block": "energy"}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, map[string]interface{}{"import_energy_active": 100.0, "export_energy_active": 20.0}, fields)

	e.Close()
	assert.Equal(t, 1, fw.flushed)
}

func TestExporter_DrainsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	fw := &fakeWriter{errCh: make(chan error, 1)}
	newExporter(fw, valueStore(t), Config{}, zap.New(core))

	fw.errCh <- errors.New("401 unauthorized")
	close(fw.errCh)

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("influx write failed").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

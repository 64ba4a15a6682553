// internal/telemetry/influx.go
package telemetry

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/store"
)

type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	Device      string
}

// pointWriter is the part of api.WriteAPI the exporter uses.
type pointWriter interface {
	WritePoint(p *write.Point)
	Flush()
	Errors() <-chan error
}

// Exporter writes one point per successful source read.
// Writes are batched by the client; nothing is read back.
type Exporter struct {
	client      influxdb2.Client
	w           pointWriter
	vs          *store.ValueStore
	measurement string
	device      string
	log         *zap.Logger
}

func New(cfg Config, vs *store.ValueStore, log *zap.Logger) *Exporter {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	e := newExporter(client.WriteAPI(cfg.Org, cfg.Bucket), vs, cfg, log)
	e.client = client
	return e
}

func newExporter(w pointWriter, vs *store.ValueStore, cfg Config, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Exporter{
		w:           w,
		vs:          vs,
		measurement: cfg.Measurement,
		device:      cfg.Device,
		log: log.With(
			zap.String("module", "telemetry"),
			zap.String("url", cfg.URL),
			zap.String("bucket", cfg.Bucket),
		),
	}
	go e.drain(w.Errors())
	return e
}

func (e *Exporter) drain(errCh <-chan error) {
	for err := range errCh {
		e.log.Warn("influx write failed", zap.Error(err))
	}
}

// Observe implements poller.Observer.
func (e *Exporter) Observe(o poller.Outcome) {
	if o.Code != poller.ResultSuccess || o.Reset {
		return
	}

	values := e.vs.Values()
	if len(values) == 0 {
		return
	}
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}

	e.w.WritePoint(influxdb2.NewPoint(
		e.measurement,
		map[string]string{"device": e.device, "block": o.Block},
		fields,
		o.At,
	))
}

// Close flushes buffered points and releases the client.
func (e *Exporter) Close() {
	e.w.Flush()
	if e.client != nil {
		e.client.Close()
	}
}

// internal/gateway/builder.go
package gateway

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/device"
	"github.com/tamzrod/modbus-gateway/internal/mapper"
	"github.com/tamzrod/modbus-gateway/internal/poller"
	pmodbus "github.com/tamzrod/modbus-gateway/internal/poller/modbus"
	"github.com/tamzrod/modbus-gateway/internal/register"
	"github.com/tamzrod/modbus-gateway/internal/slave"
	"github.com/tamzrod/modbus-gateway/internal/status"
	"github.com/tamzrod/modbus-gateway/internal/store"
	"github.com/tamzrod/modbus-gateway/internal/telemetry"
	"github.com/tamzrod/modbus-gateway/internal/web"
)

// staleFactor times the longest poll interval without a successful read
// turns an OK status block stale.
const staleFactor = 3

// Build constructs the whole gateway from a validated config.
// Nothing is started; nothing touches the network yet.
func Build(c *config.Config, log *zap.Logger) (*Gateway, error) {
	// transport (fail fast on bad source config)
	tr, err := pmodbus.New(pmodbus.Config{
		Endpoint: c.Source.Endpoint,
		UnitID:   c.Source.UnitID,
		Timeout:  time.Duration(c.Source.TimeoutMs) * time.Millisecond,
		FC:       c.Source.FC,
	}, log)
	if err != nil {
		return nil, err
	}

	return assemble(c, tr, log)
}

// assemble wires every component around an existing transport.
func assemble(c *config.Config, tr poller.Transport, log *zap.Logger) (*Gateway, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// ---- schemas ----

	src, err := buildSchema(c.Source.SchemaFile, device.EM24Name, device.EM24Blocks, log)
	if err != nil {
		return nil, errors.Wrap(err, "gateway: source schema")
	}
	dst, err := buildSchema(c.Sink.SchemaFile, device.WattNodeName, device.WattNodeBlocks, log)
	if err != nil {
		return nil, errors.Wrap(err, "gateway: sink schema")
	}

	if err := config.ValidateLayout(c, dst); err != nil {
		return nil, err
	}

	mappings := c.Mappings
	if len(mappings) == 0 {
		mappings = device.EM24ToWattNode()
	}
	if err := mapper.Validate(mappings, src, dst); err != nil {
		return nil, errors.Wrap(err, "gateway: mappings")
	}

	// ---- stores ----

	vs := store.NewValueStore(src)
	exp := store.NewExposure(dst)

	m := mapper.New(mappings, vs, exp, log)

	// ---- poller ----

	timers := make([]poller.TimerSpec, 0, len(c.Poll.Schedule))
	var longest time.Duration
	for _, t := range c.Poll.Schedule {
		iv := time.Duration(t.IntervalMs) * time.Millisecond
		if iv > longest {
			longest = iv
		}
		timers = append(timers, poller.TimerSpec{Interval: iv, Blocks: t.Blocks})
	}

	if len(timers) == 0 {
		timers = poller.DefaultTimers()
		longest = time.Second
	}
	loopDelay := time.Duration(c.Poll.LoopDelayMs) * time.Millisecond
	if loopDelay <= 0 {
		loopDelay = poller.DefaultLoopDelay
	}

	p, err := poller.New(poller.Config{LoopDelay: loopDelay, Timers: timers}, tr, vs, m, log)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		Source: vs,
		Sink:   exp,
		poller: p,
		log:    log.With(zap.String("module", "gateway")),
	}

	// ---- status block (optional) ----

	if c.Sink.StatusAddress != nil {
		base := *c.Sink.StatusAddress
		if err := exp.Reserve(base, status.SlotsPerDevice); err != nil {
			return nil, errors.Wrap(err, "gateway: status block")
		}
		g.tracker, err = status.NewTracker(exp, base, c.Sink.DeviceName, staleFactor*longest, log)
		if err != nil {
			return nil, err
		}
		p.Subscribe(g.tracker)
	}

	// ---- sink server ----

	g.slave, err = slave.New(slave.Config{
		URL:        c.Sink.URL,
		UnitID:     c.Sink.UnitID,
		Timeout:    time.Duration(c.Sink.TimeoutMs) * time.Millisecond,
		MaxClients: c.Sink.MaxClients,
	}, exp, log)
	if err != nil {
		return nil, err
	}

	// ---- diagnostics (optional) ----

	if c.Web.Listen != "" {
		g.web = web.New(c.Web.Listen, vs, exp, p.Stats, log)
		p.Subscribe(g.web)
	}

	if c.Influx.URL != "" {
		g.telemetry = telemetry.New(telemetry.Config{
			URL:         c.Influx.URL,
			Token:       c.Influx.Token,
			Org:         c.Influx.Org,
			Bucket:      c.Influx.Bucket,
			Measurement: c.Influx.Measurement,
			Device:      c.Sink.DeviceName,
		}, vs, log)
		p.Subscribe(g.telemetry)
	}

	log.Info("gateway built",
		zap.String("source_schema", src.Name),
		zap.Int("source_blocks", len(src.Blocks())),
		zap.String("sink_schema", dst.Name),
		zap.Int("sink_blocks", len(dst.Blocks())),
		zap.Int("mappings", len(mappings)),
		zap.Bool("status_block", g.tracker != nil),
	)

	return g, nil
}

// buildSchema loads path when set, the built-in table otherwise.
func buildSchema(path, name string, builtin func() []register.Block, log *zap.Logger) (*register.Schema, error) {
	if path == "" {
		return register.NewSchema(name, builtin(), log)
	}

	sf, err := register.LoadSchemaFile(path)
	if err != nil {
		return nil, err
	}
	return register.NewSchema(sf.Name, sf.Blocks, log)
}

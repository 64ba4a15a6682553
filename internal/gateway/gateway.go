// internal/gateway/gateway.go
package gateway

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/slave"
	"github.com/tamzrod/modbus-gateway/internal/status"
	"github.com/tamzrod/modbus-gateway/internal/store"
	"github.com/tamzrod/modbus-gateway/internal/telemetry"
	"github.com/tamzrod/modbus-gateway/internal/web"
)

// Gateway owns every long-lived component of one source/sink pair.
type Gateway struct {
	Source *store.ValueStore
	Sink   *store.Exposure

	poller    *poller.Poller
	tracker   *status.Tracker // nil when no status block
	slave     *slave.Server
	web       *web.Server         // nil when disabled
	telemetry *telemetry.Exporter // nil when disabled
	log       *zap.Logger
}

func (g *Gateway) Stats() poller.Stats {
	return g.poller.Stats()
}

// Run starts the sink server and blocks on the control loop until ctx
// is done or a component fails. A failing component stops the others.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.slave.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	fail := func(name string, err error) {
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		g.log.Error("component failed", zap.String("component", name), zap.Error(err))
		mu.Lock()
		errs = multierr.Append(errs, errors.Wrap(err, name))
		mu.Unlock()
		cancel()
	}

	if g.tracker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.tracker.Run(ctx)
		}()
	}

	if g.web != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fail("web", g.web.Run(ctx))
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		fail("poller", g.poller.Run(ctx))
	}()

	g.log.Info("running")
	<-ctx.Done()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return multierr.Append(errs, g.Close())
}

// Close stops the sink server and flushes telemetry.
func (g *Gateway) Close() error {
	var err error
	if g.slave != nil {
		err = multierr.Append(err, g.slave.Stop())
	}
	if g.telemetry != nil {
		g.telemetry.Close()
	}
	g.log.Info("stopped")
	return err
}

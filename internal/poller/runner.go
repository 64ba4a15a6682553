// internal/poller/runner.go
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run drives Step on a fixed loop delay until ctx is done.
// One goroutine. The transport is disconnected on exit.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.LoopDelay)
	defer ticker.Stop()

	defer func() {
		if err := p.tr.Disconnect(); err != nil {
			p.log.Warn("disconnect on shutdown failed", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.Step(now)
		}
	}
}

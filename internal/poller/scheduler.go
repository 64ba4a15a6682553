// internal/poller/scheduler.go
package poller

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/store"
)

type timer struct {
	interval time.Duration
	ref      time.Time
	jobs     []*store.BlockSnapshot
}

// Scheduler owns the periodic timers and the FIFO job queue.
// Fixed period, no catch-up: a late timer enqueues its blocks once.
type Scheduler struct {
	timers []*timer
	queue  []*store.BlockSnapshot
}

// NewScheduler resolves timer block names against the live store.
// Names that are unknown or were rejected at schema load are dropped
// with a warning.
func NewScheduler(specs []TimerSpec, vs *store.ValueStore, now time.Time, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Scheduler{}
	for i, spec := range specs {
		if spec.Interval <= 0 {
			return nil, errors.Errorf("poller: timer %d: interval must be > 0", i)
		}

		t := &timer{interval: spec.Interval, ref: now}
		for _, name := range spec.Blocks {
			snap, ok := vs.Block(name)
			if !ok {
				log.Warn("block not schedulable", zap.String("block", name), zap.Duration("interval", spec.Interval))
				continue
			}
			t.jobs = append(t.jobs, snap)
		}
		if len(t.jobs) > 0 {
			s.timers = append(s.timers, t)
		}
	}

	if len(s.timers) == 0 {
		return nil, errors.New("poller: no schedulable blocks")
	}
	return s, nil
}

// Tick enqueues the blocks of every timer whose interval has elapsed.
func (s *Scheduler) Tick(now time.Time) {
	for _, t := range s.timers {
		if now.Sub(t.ref) < t.interval {
			continue
		}
		s.queue = append(s.queue, t.jobs...)
		t.ref = now
	}
}

// Next dequeues exactly one job.
func (s *Scheduler) Next() (*store.BlockSnapshot, bool) {
	if len(s.queue) == 0 {
		return nil, false
	}
	j := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return j, true
}

func (s *Scheduler) Len() int {
	return len(s.queue)
}

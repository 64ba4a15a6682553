// internal/poller/poller.go
package poller

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/store"
)

// DefaultLoopDelay is the pause between control loop iterations.
const DefaultLoopDelay = 20 * time.Millisecond

// DefaultTimers is the EM24 schedule: instantaneous values twice a
// second, counters once a second.
func DefaultTimers() []TimerSpec {
	return []TimerSpec{
		{Interval: 500 * time.Millisecond, Blocks: []string{"dynamic"}},
		{Interval: time.Second, Blocks: []string{"energy", "time", "tariff"}},
	}
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	LoopDelay time.Duration
	Timers    []TimerSpec
}

// Poller is the single control loop: tick, dispatch one job, drain
// completions. All value store mutation happens inside Step.
type Poller struct {
	cfg   Config
	tr    Transport
	sched *Scheduler
	corr  *Correlator
	log   *zap.Logger

	dropped atomic.Uint64
	queued  atomic.Int64
}

// New wires scheduler and correlator around a transport.
// Every timer fires on the first Step.
func New(cfg Config, tr Transport, vs *store.ValueStore, r Refresher, log *zap.Logger) (*Poller, error) {
	if tr == nil {
		return nil, errors.New("poller: transport required")
	}
	if vs == nil {
		return nil, errors.New("poller: value store required")
	}
	if r == nil {
		return nil, errors.New("poller: refresher required")
	}
	if cfg.LoopDelay <= 0 {
		return nil, errors.New("poller: loop delay must be > 0")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("module", "poller"))

	sched, err := NewScheduler(cfg.Timers, vs, time.Time{}, log)
	if err != nil {
		return nil, err
	}

	return &Poller{
		cfg:   cfg,
		tr:    tr,
		sched: sched,
		corr:  NewCorrelator(tr, vs, r, log),
		log:   log,
	}, nil
}

// Subscribe registers an observer for read outcomes.
// Must be called before Run.
func (p *Poller) Subscribe(o Observer) {
	p.corr.Subscribe(o)
}

// Step performs one loop iteration.
func (p *Poller) Step(now time.Time) {
	p.sched.Tick(now)
	p.dispatch(now)
	p.drain()
	p.queued.Store(int64(p.sched.Len()))
}

// dispatch sends exactly one queued job. While disconnected it starts a
// connection attempt instead and the job is dropped; its timer will
// enqueue it again.
func (p *Poller) dispatch(now time.Time) {
	snap, ok := p.sched.Next()
	if !ok {
		return
	}

	if !p.tr.IsConnected() {
		p.dropped.Add(1)
		if err := p.tr.Connect(); err != nil {
			p.log.Warn("connect failed", zap.Error(err))
			p.corr.Notify(Outcome{Block: snap.Block.Name, Code: ResultError, Err: err, At: now})
		}
		return
	}

	p.corr.Issue(snap)
}

// drain resolves every completion that is already queued.
func (p *Poller) drain() int {
	n := 0
	for {
		select {
		case c := <-p.tr.Completions():
			p.corr.OnCompletion(c)
			n++
		default:
			return n
		}
	}
}

// Stats is safe to call from any goroutine.
func (p *Poller) Stats() Stats {
	s := p.corr.Stats()
	s.Dropped = p.dropped.Load()
	s.Queued = int(p.queued.Load())
	return s
}

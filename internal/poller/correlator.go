// internal/poller/correlator.go
package poller

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/store"
)

// MaxPending bounds the pending request list. Oldest entries go first.
const MaxPending = 50

// Correlator matches completions to the blocks that requested them.
//
// Two strikes: one timeout sets a process-wide flag, a second timeout
// with no success in between resets the connection and drops every
// pending request. Only a committed success clears the flag.
//
// Not safe for concurrent use; owned by the control loop.
type Correlator struct {
	tr     Transport
	vs     *store.ValueStore
	mapper Refresher
	log    *zap.Logger
	now    func() time.Time

	pending      []PendingRequest
	timedOutOnce bool
	observers    []Observer

	issued, completed, errs, timeouts, resets, unknown, evicted atomic.Uint64
	npending                                                    atomic.Int64
}

func NewCorrelator(tr Transport, vs *store.ValueStore, mapper Refresher, log *zap.Logger) *Correlator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Correlator{
		tr:      tr,
		vs:      vs,
		mapper:  mapper,
		log:     log.With(zap.String("module", "correlator")),
		now:     time.Now,
		pending: make([]PendingRequest, 0, MaxPending),
	}
}

func (c *Correlator) Subscribe(o Observer) {
	c.observers = append(c.observers, o)
}

// Issue requests one block read. It returns false if the transport
// refused the request.
func (c *Correlator) Issue(snap *store.BlockSnapshot) bool {
	b := snap.Block

	id, err := c.tr.Read(b.BaseAddress, b.TotalWords)
	if err != nil {
		c.log.Warn("read not issued", zap.String("block", b.Name), zap.Error(err))
		return false
	}

	for len(c.pending) >= MaxPending {
		old := c.pending[0]
		c.pending = c.pending[1:]
		c.vs.ClearPending(old.Snapshot, old.ID)
		c.evicted.Add(1)
		c.log.Debug("pending request evicted", zap.Uint16("id", old.ID), zap.String("block", old.Snapshot.Block.Name))
	}

	c.pending = append(c.pending, PendingRequest{ID: id, Snapshot: snap, IssuedAt: c.now()})
	c.vs.MarkPending(snap, id)
	c.issued.Add(1)
	c.npending.Store(int64(len(c.pending)))
	return true
}

// OnCompletion resolves one completion by correlation id.
func (c *Correlator) OnCompletion(cmp Completion) {
	req, ok := c.take(cmp.ID)
	if !ok {
		c.unknown.Add(1)
		c.log.Debug("no pending request for id", zap.Uint16("id", cmp.ID), zap.Stringer("code", cmp.Code))
		return
	}

	name := req.Snapshot.Block.Name
	out := Outcome{Block: name, Code: cmp.Code, Err: cmp.Err, At: c.now()}

	switch cmp.Code {
	case ResultSuccess:
		if err := c.vs.Commit(req.Snapshot, cmp.ID, cmp.Words, out.At); err != nil {
			c.errs.Add(1)
			c.log.Warn("read discarded", zap.String("block", name), zap.Error(err))
			out.Code, out.Err = ResultError, err
			break
		}
		c.timedOutOnce = false
		c.completed.Add(1)
		c.mapper.Refresh()

	case ResultTimeout:
		c.timeouts.Add(1)
		if c.timedOutOnce {
			c.log.Warn("second consecutive timeout, resetting connection", zap.String("block", name))
			c.reset()
			out.Reset = true
		} else {
			c.log.Info("read timed out", zap.String("block", name))
			c.timedOutOnce = true
		}

	default:
		c.errs.Add(1)
		c.log.Warn("read failed", zap.String("block", name), zap.Stringer("code", cmp.Code), zap.Error(cmp.Err))
	}

	c.notify(out)
}

// Notify forwards an outcome produced outside completion handling.
func (c *Correlator) Notify(o Outcome) {
	c.notify(o)
}

func (c *Correlator) take(id uint16) (PendingRequest, bool) {
	for i, p := range c.pending {
		if p.ID != id {
			continue
		}
		copy(c.pending[i:], c.pending[i+1:])
		c.pending = c.pending[:len(c.pending)-1]
		c.vs.ClearPending(p.Snapshot, p.ID)
		c.npending.Store(int64(len(c.pending)))
		return p, true
	}
	return PendingRequest{}, false
}

func (c *Correlator) reset() {
	if err := c.tr.Disconnect(); err != nil {
		c.log.Warn("disconnect failed", zap.Error(err))
	}
	c.tr.DropAllPending()

	c.pending = c.pending[:0]
	c.vs.ClearAllPending()
	c.npending.Store(0)
	c.timedOutOnce = false
	c.resets.Add(1)
}

func (c *Correlator) notify(o Outcome) {
	for _, obs := range c.observers {
		obs.Observe(o)
	}
}

// Pending returns a copy of the pending list, oldest first.
func (c *Correlator) Pending() []PendingRequest {
	return append([]PendingRequest(nil), c.pending...)
}

// TimedOutOnce reports the state of the two-strikes flag.
func (c *Correlator) TimedOutOnce() bool {
	return c.timedOutOnce
}

// Stats is safe to call from any goroutine.
func (c *Correlator) Stats() Stats {
	return Stats{
		Issued:    c.issued.Load(),
		Completed: c.completed.Load(),
		Errors:    c.errs.Load(),
		Timeouts:  c.timeouts.Load(),
		Resets:    c.resets.Load(),
		Unknown:   c.unknown.Load(),
		Evicted:   c.evicted.Load(),
		Pending:   int(c.npending.Load()),
	}
}

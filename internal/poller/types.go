// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/modbus-gateway/internal/store"
)

// ResultCode classifies a completed read.
type ResultCode uint8

const (
	ResultSuccess ResultCode = iota
	ResultTimeout
	ResultError     // transport failure other than timeout
	ResultException // device answered with a Modbus exception
)

func (c ResultCode) String() string {
	switch c {
	case ResultSuccess:
		return "success"
	case ResultTimeout:
		return "timeout"
	case ResultError:
		return "error"
	case ResultException:
		return "exception"
	}
	return "unknown"
}

// Completion is delivered by the transport once per issued read.
// Words is set only on success.
type Completion struct {
	ID    uint16
	Code  ResultCode
	Words []uint16
	Err   error
}

// Transport is the asynchronous source side.
//
// Read returns immediately with a non-zero correlation id; the result
// arrives later on Completions in any order. Connect only starts an
// attempt; IsConnected reports the outcome.
type Transport interface {
	Read(addr, qty uint16) (uint16, error)
	Completions() <-chan Completion
	Connect() error
	IsConnected() bool
	Disconnect() error
	DropAllPending()
}

// Refresher is invoked after every committed read.
type Refresher interface {
	Refresh() int
}

// PendingRequest pairs an issued read with its target block.
type PendingRequest struct {
	ID       uint16
	Snapshot *store.BlockSnapshot
	IssuedAt time.Time
}

// Outcome is reported to observers for every resolved completion,
// connect failure and connection reset.
type Outcome struct {
	Block string
	Code  ResultCode
	Err   error
	Reset bool
	At    time.Time
}

// Observer receives outcomes on the control loop. It must not block.
type Observer interface {
	Observe(o Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(o Outcome)

func (f ObserverFunc) Observe(o Outcome) { f(o) }

// TimerSpec is one periodic timer selecting one or more blocks.
type TimerSpec struct {
	Interval time.Duration
	Blocks   []string
}

// Stats are cumulative counters for diagnostics.
type Stats struct {
	Issued    uint64
	Completed uint64
	Errors    uint64
	Timeouts  uint64
	Resets    uint64
	Unknown   uint64
	Evicted   uint64
	Dropped   uint64 // jobs dropped while disconnected
	Pending   int
	Queued    int
}

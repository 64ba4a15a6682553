// internal/poller/modbus/client.go
package modbus

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/poller"
)

var (
	errNotConnected = errors.New("modbus client: not connected")
	errBusy         = errors.New("modbus client: too many reads in flight")
)

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
	FC       uint8 // 3 or 4
}

// Client implements poller.Transport over goburrow/modbus TCP.
//
// Each Read runs the blocking library call on its own goroutine and
// reports on the completion channel. Reads take the wire one at a time.
// DropAllPending bumps a generation: queued reads of an older generation
// never reach the wire and their results are discarded.
type Client struct {
	cfg     Config
	handler *modbus.TCPClientHandler
	client  modbus.Client
	out     chan poller.Completion
	log     *zap.Logger

	// wire is held for one library round trip or close.
	wire sync.Mutex

	mu            sync.Mutex
	connected     bool
	connecting    bool
	disconnecting bool
	lastErr       error
	gen           uint64
	tid           uint16
	inflight      int
}

// New creates a disconnected client. Call Connect to start an attempt.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}
	if cfg.FC != 3 && cfg.FC != 4 {
		return nil, errors.Errorf("modbus client: unsupported function code %d", cfg.FC)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	c := &Client{
		cfg:     cfg,
		handler: h,
		client:  modbus.NewClient(h),
		out:     make(chan poller.Completion, 2*poller.MaxPending),
		log:     log.With(zap.String("module", "source"), zap.String("endpoint", cfg.Endpoint)),
	}

	// Randomize starting id (best effort).
	var b [2]byte
	if _, err := rand.Read(b[:]); err == nil {
		c.tid = binary.BigEndian.Uint16(b[:])
	}

	return c, nil
}

// ---- poller.Transport ----

func (c *Client) Completions() <-chan poller.Completion {
	return c.out
}

// Connect starts a connection attempt in the background and returns the
// error of the previous attempt, if any.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.lastErr
	c.lastErr = nil
	if c.connected || c.connecting || c.disconnecting {
		return prev
	}
	c.connecting = true

	go func() {
		err := c.handler.Connect()

		c.mu.Lock()
		c.connecting = false
		c.connected = err == nil
		c.lastErr = err
		c.mu.Unlock()

		if err != nil {
			c.log.Warn("connect failed", zap.Error(err))
			return
		}
		c.log.Info("connected")
	}()

	return prev
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect marks the client disconnected and closes the socket in the
// background once the read holding the wire returns. Connect is refused
// until the close is done.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	if c.disconnecting {
		return nil
	}
	c.disconnecting = true

	go func() {
		c.wire.Lock()
		err := c.handler.Close()
		c.wire.Unlock()

		if err != nil {
			c.log.Warn("close failed", zap.Error(err))
		} else {
			c.log.Info("disconnected")
		}

		c.mu.Lock()
		c.disconnecting = false
		c.mu.Unlock()
	}()

	return nil
}

func (c *Client) DropAllPending() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

// Read issues one register read and returns its correlation id.
func (c *Client) Read(addr, qty uint16) (uint16, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return 0, errNotConnected
	}
	if c.inflight >= poller.MaxPending {
		c.mu.Unlock()
		return 0, errBusy
	}
	id := c.nextTID()
	gen := c.gen
	c.inflight++
	c.mu.Unlock()

	go func() {
		c.wire.Lock()
		c.mu.Lock()
		stale := gen != c.gen
		live := c.connected
		c.mu.Unlock()

		// goburrow re-dials on Send, so nothing goes out after a reset
		// or disconnect.
		var cmp poller.Completion
		switch {
		case stale:
		case !live:
			cmp = poller.Completion{ID: id, Code: poller.ResultError, Err: errNotConnected}
		default:
			cmp = c.roundTrip(id, addr, qty)
		}
		c.wire.Unlock()

		c.mu.Lock()
		c.inflight--
		stale = gen != c.gen
		c.mu.Unlock()

		if stale {
			return
		}
		select {
		case c.out <- cmp:
		default:
			c.log.Warn("completion dropped, channel full", zap.Uint16("id", id))
		}
	}()

	return id, nil
}

// nextTID never returns 0; 0 means "no read outstanding".
func (c *Client) nextTID() uint16 {
	c.tid++
	if c.tid == 0 {
		c.tid = 1
	}
	return c.tid
}

func (c *Client) roundTrip(id, addr, qty uint16) poller.Completion {
	var (
		raw []byte
		err error
	)
	switch c.cfg.FC {
	case 3:
		raw, err = c.client.ReadHoldingRegisters(addr, qty)
	default:
		raw, err = c.client.ReadInputRegisters(addr, qty)
	}

	if err != nil {
		return poller.Completion{ID: id, Code: classify(err), Err: wrapException(err)}
	}

	words, err := unpackRegisters(raw, qty)
	if err != nil {
		return poller.Completion{ID: id, Code: poller.ResultError, Err: err}
	}
	return poller.Completion{ID: id, Code: poller.ResultSuccess, Words: words}
}

// ---- helpers ----

func classify(err error) poller.ResultCode {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return poller.ResultException
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return poller.ResultTimeout
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return poller.ResultTimeout
	}
	return poller.ResultError
}

// ExceptionError carries the Modbus exception code of a failed read.
type ExceptionError struct {
	Function  byte
	Exception byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Exception)
}

// ModbusCode is the status block error code of an exception (0x80 | code).
func (e *ExceptionError) ModbusCode() uint16 {
	return 0x80 | uint16(e.Exception)
}

func wrapException(err error) error {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return &ExceptionError{Function: me.FunctionCode &^ 0x80, Exception: me.ExceptionCode}
	}
	return err
}

// unpackRegisters converts big-endian register bytes to words.
func unpackRegisters(data []byte, qty uint16) ([]uint16, error) {
	if len(data) != 2*int(qty) {
		return nil, errors.Errorf("modbus client: got %d bytes, want %d", len(data), 2*int(qty))
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out, nil
}

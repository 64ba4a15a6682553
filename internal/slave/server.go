// internal/slave/server.go
package slave

import (
	"time"

	"github.com/pkg/errors"
	"github.com/simonvetter/modbus"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/store"
)

// Memory is the register memory served to the master.
type Memory interface {
	ReadWords(addr, qty uint16) ([]uint16, error)
	WriteWords(addr uint16, words []uint16) error
}

type Config struct {
	URL        string
	UnitID     uint8
	Timeout    time.Duration
	MaxClients uint
}

// Server answers register reads from Memory. It never initiates traffic.
type Server struct {
	cfg Config
	srv *modbus.ModbusServer
	log *zap.Logger
}

func New(cfg Config, mem Memory, log *zap.Logger) (*Server, error) {
	if mem == nil {
		return nil, errors.New("slave: memory required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("module", "slave"), zap.String("url", cfg.URL))

	h := &handler{unitID: cfg.UnitID, mem: mem, log: log}
	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        cfg.URL,
		Timeout:    cfg.Timeout,
		MaxClients: cfg.MaxClients,
	}, h)
	if err != nil {
		return nil, errors.Wrap(err, "slave: new server")
	}

	return &Server{cfg: cfg, srv: srv, log: log}, nil
}

// Start listens and serves on background goroutines.
func (s *Server) Start() error {
	if err := s.srv.Start(); err != nil {
		return errors.Wrap(err, "slave: start")
	}
	s.log.Info("serving", zap.Uint8("unit_id", s.cfg.UnitID))
	return nil
}

func (s *Server) Stop() error {
	return s.srv.Stop()
}

// ---- request handler ----

type handler struct {
	unitID uint8
	mem    Memory
	log    *zap.Logger
}

// Requests for another unit id are answered as a gateway whose target
// did not respond.
func (h *handler) accepts(unitID uint8, write bool) bool {
	// 0 is broadcast: writes only
	if unitID == 0 {
		return write
	}
	return unitID == h.unitID
}

func (h *handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if !h.accepts(req.UnitId, req.IsWrite) {
		return nil, modbus.ErrGWTargetFailedToRespond
	}

	if req.IsWrite {
		if err := h.mem.WriteWords(req.Addr, req.Args); err != nil {
			h.log.Debug("write rejected", zap.Uint16("addr", req.Addr), zap.Int("qty", len(req.Args)), zap.Error(err))
			return nil, mapErr(err)
		}
		h.log.Info("registers written by master", zap.Uint16("addr", req.Addr), zap.Int("qty", len(req.Args)), zap.String("client", req.ClientAddr))
		return nil, nil
	}

	return h.read(req.Addr, req.Quantity)
}

func (h *handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	if !h.accepts(req.UnitId, false) {
		return nil, modbus.ErrGWTargetFailedToRespond
	}
	return h.read(req.Addr, req.Quantity)
}

func (h *handler) read(addr, qty uint16) ([]uint16, error) {
	words, err := h.mem.ReadWords(addr, qty)
	if err != nil {
		h.log.Debug("read rejected", zap.Uint16("addr", addr), zap.Uint16("qty", qty), zap.Error(err))
		return nil, mapErr(err)
	}
	return words, nil
}

func mapErr(err error) error {
	if errors.Is(err, store.ErrIllegalAddress) {
		return modbus.ErrIllegalDataAddress
	}
	return modbus.ErrServerDeviceFailure
}

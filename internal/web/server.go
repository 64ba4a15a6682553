// internal/web/server.go
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/poller"
	"github.com/tamzrod/modbus-gateway/internal/store"
)

const shutdownTimeout = 2 * time.Second

// StatsFunc returns the current poller counters.
type StatsFunc func() poller.Stats

// Reading is the JSON body of /latest and of every websocket push.
type Reading struct {
	Fields    map[string]float64 `json:"fields"`
	UpdatedAt time.Time          `json:"updated_at"`
	Stats     *poller.Stats      `json:"stats,omitempty"`
}

// Server is the read-only diagnostic page.
type Server struct {
	listen string
	vs     *store.ValueStore
	exp    *store.Exposure
	stats  StatsFunc
	hub    *hub
	notify chan struct{}
	log    *zap.Logger
}

// New builds the page. exp and stats may be nil.
func New(listen string, vs *store.ValueStore, exp *store.Exposure, stats StatsFunc, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("module", "web"), zap.String("listen", listen))

	return &Server{
		listen: listen,
		vs:     vs,
		exp:    exp,
		stats:  stats,
		hub:    newHub(log),
		notify: make(chan struct{}, 1),
		log:    log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/latest", s.handleLatest)
	mux.HandleFunc("/sink", s.handleSink)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Observe implements poller.Observer. Successful reads schedule one
// websocket push; pushes coalesce while the pump is busy.
func (s *Server) Observe(o poller.Outcome) {
	if o.Code != poller.ResultSuccess || o.Reset {
		return
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status page listening")
		errCh <- srv.ListenAndServe()
	}()

	go s.pump(ctx)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "web: listen")
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		s.log.Warn("shutdown", zap.Error(err))
	}
	s.hub.closeAll()
	return nil
}

func (s *Server) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			b, err := json.Marshal(s.latest())
			if err != nil {
				s.log.Warn("encode reading", zap.Error(err))
				continue
			}
			s.hub.broadcast(b)
		}
	}
}

// ---- handlers ----

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Dump(s.vs)))
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.latest())
}

func (s *Server) handleSink(w http.ResponseWriter, r *http.Request) {
	if s.exp == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, s.exp.Values())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade", zap.Error(err))
		return
	}
	s.hub.add(conn)

	// Current reading right away, if there is one.
	if rd := s.latest(); len(rd.Fields) > 0 {
		if b, err := json.Marshal(rd); err == nil {
			s.hub.send(conn, b)
		}
	}

	// Keep reading until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.remove(conn)
			return
		}
	}
}

func (s *Server) latest() Reading {
	rd := Reading{Fields: s.vs.Values()}
	for _, b := range s.vs.Schema().Blocks() {
		if c, ok := s.vs.Copy(b.Name); ok && c.UpdatedAt.After(rd.UpdatedAt) {
			rd.UpdatedAt = c.UpdatedAt
		}
	}
	if s.stats != nil {
		st := s.stats()
		rd.Stats = &st
	}
	return rd
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// internal/web/hub.go
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only LAN diagnostics
	},
}

// hub tracks connected websocket clients. A client that fails a write
// is dropped.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{clients: make(map[*websocket.Conn]*sync.Mutex), log: log}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = &sync.Mutex{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("websocket client connected", zap.String("remote", c.RemoteAddr().String()), zap.Int("clients", n))
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.Close()
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// send writes one text message; gorilla allows one concurrent writer per conn.
func (h *hub) send(c *websocket.Conn, b []byte) {
	h.mu.Lock()
	wmu, ok := h.clients[c]
	h.mu.Unlock()
	if !ok {
		return
	}

	wmu.Lock()
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.WriteMessage(websocket.TextMessage, b)
	wmu.Unlock()

	if err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
		h.remove(c)
	}
}

func (h *hub) broadcast(b []byte) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.send(c, b)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := h.clients
	h.clients = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()

	for c := range conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait))
		_ = c.Close()
	}
}

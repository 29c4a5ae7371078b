// Package feed serves the notification/dashboard collaborator: a
// websocket hub that pushes queue and performance updates on every
// change and answers liveness pings. It implements core.Publisher.
package feed

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/stagedive/deckqueue/internal/domain"
	"github.com/stagedive/deckqueue/internal/monitoring"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type feedConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *feedConn) trySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *feedConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Hub fans publications out to every connected dashboard. The latest
// queue and performance updates are retained and replayed to a fresh
// connection so it never starts blank.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*feedConn

	lastQueue       []byte
	lastPerformance []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*feedConn)}
}

// HandleFeed upgrades a dashboard connection and starts its pumps.
func (h *Hub) HandleFeed(c *gin.Context) {
	token := c.GetString("client_token")
	log.Info().Str("module", "adapters.feed").Str("client", token).Msg("new feed connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.feed").Msg("ws upgrade")
		return
	}

	conn := &feedConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	h.mu.Lock()
	if old, ok := h.clients[token]; ok {
		old.close()
	}
	h.clients[token] = conn
	lastQueue, lastPerformance := h.lastQueue, h.lastPerformance
	h.mu.Unlock()
	monitoring.AddFeedClient(1)

	if lastQueue != nil {
		_ = conn.trySend(lastQueue)
	}
	if lastPerformance != nil {
		_ = conn.trySend(lastPerformance)
	}

	go h.writePump(conn)
	go h.readPump(token, conn)
}

func (h *Hub) writePump(c *feedConn) {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			log.Error().Err(err).Str("module", "adapters.feed").Msg("writePump set deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "adapters.feed").Msg("writePump write error")
			return
		}
	}
}

func (h *Hub) readPump(token string, c *feedConn) {
	defer func() {
		h.mu.Lock()
		if h.clients[token] == c {
			delete(h.clients, token)
		}
		h.mu.Unlock()
		c.close()
		monitoring.AddFeedClient(-1)
		log.Info().Str("module", "adapters.feed").Str("client", token).Msg("feed connection closed")
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		// Liveness probe: the dashboard uses this to tell whether the
		// core is alive.
		if env.Type == "ping" {
			_ = c.trySend([]byte(`{"type":"pong"}`))
		}
	}
}

// --- core.Publisher --------------------------------------------------

func (h *Hub) PublishQueue(upd domain.QueueUpdate) {
	h.broadcast(upd, true)
}

func (h *Hub) PublishPerformance(upd domain.PerformanceUpdate) {
	h.broadcast(upd, false)
}

func (h *Hub) broadcast(v any, isQueue bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.feed").Msg("broadcast marshal")
		return
	}
	h.mu.Lock()
	if isQueue {
		h.lastQueue = b
	} else {
		h.lastPerformance = b
	}
	conns := make([]*feedConn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.trySend(b); err != nil {
			log.Warn().Err(err).Str("module", "adapters.feed").Msg("slow feed client, update dropped")
		}
	}
}

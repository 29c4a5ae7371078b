// Package room speaks to the live-room platform over a websocket: the
// inbound event feed, the occupancy query round trip, and outbound
// actions (evict, messages). It implements core.RoomActions.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/stagedive/deckqueue/internal/domain"
	"github.com/stagedive/deckqueue/internal/monitoring"
)

var ErrBackpressure = errors.New("backpressure")

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	redialBase   = time.Second
	redialMax    = 30 * time.Second
)

type Client struct {
	url    string
	events chan domain.Event
	send   chan []byte

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan domain.Occupancy
}

func NewClient(url string) *Client {
	return &Client{
		url:     url,
		events:  make(chan domain.Event, 128),
		send:    make(chan []byte, sendBuffer),
		pending: make(map[string]chan domain.Occupancy),
	}
}

// Events is the feed the dispatcher drains. Arrival order preserved.
func (c *Client) Events() <-chan domain.Event {
	return c.events
}

// Dial establishes the first connection. A failure here is fatal for
// the process; reconnects after a drop are handled by Run.
func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial room feed: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	log.Info().Str("module", "adapters.room").Str("url", c.url).Msg("room feed connected")
	return nil
}

// Run pumps the connection until the context ends, redialing with
// backoff after a drop. Call Dial first.
func (c *Client) Run(ctx context.Context) {
	backoff := redialBase
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			connCtx, cancel := context.WithCancel(ctx)
			go c.writePump(connCtx, conn)
			go func() {
				// Unblocks the read pump on shutdown.
				<-connCtx.Done()
				_ = conn.Close()
			}()
			c.readPump(ctx, conn)
			cancel()
			c.dropPending()
			backoff = redialBase
		}

		if ctx.Err() != nil {
			close(c.events)
			return
		}
		log.Warn().Str("module", "adapters.room").Dur("backoff", backoff).Msg("room feed dropped, redialing")
		select {
		case <-ctx.Done():
			close(c.events)
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > redialMax {
			backoff = redialMax
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.room").Msg("redial failed")
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			continue
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		log.Info().Str("module", "adapters.room").Msg("room feed reconnected")
	}
}

func (c *Client) writePump(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "adapters.room").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.room").Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()
	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.room").Msg("readPump read error")
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "adapters.room").Msg("bad json frame")
		return
	}

	switch env.Type {
	case "slot_joined":
		c.emitWho(data, func(id domain.Identity) domain.Event { return domain.SlotJoined{Who: id} })
	case "slot_left":
		c.emitWho(data, func(id domain.Identity) domain.Event { return domain.SlotLeft{Who: id} })
	case "room_entered":
		c.emitWho(data, func(id domain.Identity) domain.Event { return domain.RoomEntered{Who: id} })
	case "room_left":
		c.emitWho(data, func(id domain.Identity) domain.Event { return domain.RoomLeft{Who: id} })
	case "performance_started":
		var p struct {
			Performer string      `json:"performer"`
			Song      domain.Song `json:"song"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.Performer == "" {
			log.Error().Str("module", "adapters.room").Msg("bad performance_started frame")
			return
		}
		c.emit(domain.PerformanceStarted{Performer: domain.Identity(p.Performer), Song: p.Song})
	case "performance_ended":
		var p struct {
			Performer string `json:"performer"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.Performer == "" {
			log.Error().Str("module", "adapters.room").Msg("bad performance_ended frame")
			return
		}
		c.emit(domain.PerformanceEnded{Performer: domain.Identity(p.Performer)})
	case "command":
		var p struct {
			Command string `json:"command"`
			Issuer  string `json:"issuer"`
			Arg     string `json:"arg,omitempty"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.Issuer == "" {
			log.Error().Str("module", "adapters.room").Msg("bad command frame")
			return
		}
		c.emit(domain.ChatIntent{
			Command: domain.Command(p.Command),
			Issuer:  domain.Identity(p.Issuer),
			Arg:     p.Arg,
		})
	case "occupancy":
		c.resolveOccupancy(data)
	default:
		log.Warn().Str("module", "adapters.room").Str("type", env.Type).Msg("unknown frame")
	}
}

func (c *Client) emitWho(data []byte, wrap func(domain.Identity) domain.Event) {
	var p struct {
		Who string `json:"who"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Who == "" {
		log.Error().Str("module", "adapters.room").Msg("bad identity frame")
		return
	}
	c.emit(wrap(domain.Identity(p.Who)))
}

func (c *Client) emit(ev domain.Event) {
	select {
	case c.events <- ev:
	default:
		// The dispatcher is wedged; dropping is better than blocking
		// the read pump.
		log.Warn().Str("module", "adapters.room").Msg("event buffer full, dropping")
	}
}

// --- core.RoomActions ------------------------------------------------

// CurrentOccupancy is a correlated request/response round trip. Callers
// must not hold the engine lock across it.
func (c *Client) CurrentOccupancy(ctx context.Context) (domain.Occupancy, error) {
	req := uuid.NewString()
	resp := make(chan domain.Occupancy, 1)

	c.mu.Lock()
	c.pending[req] = resp
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req)
		c.mu.Unlock()
	}()

	if err := c.trySend(map[string]any{"type": "occupancy_get", "req": req}); err != nil {
		return domain.Occupancy{}, err
	}
	select {
	case <-ctx.Done():
		return domain.Occupancy{}, fmt.Errorf("occupancy query: %w", ctx.Err())
	case snap := <-resp:
		return snap, nil
	}
}

func (c *Client) resolveOccupancy(data []byte) {
	var p struct {
		Req       string        `json:"req"`
		Slots     []domain.Slot `json:"slots"`
		Performer string        `json:"performer,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.room").Msg("bad occupancy frame")
		return
	}
	c.mu.Lock()
	resp, ok := c.pending[p.Req]
	c.mu.Unlock()
	if !ok {
		return
	}
	resp <- domain.Occupancy{Slots: p.Slots, Performer: domain.Identity(p.Performer)}
}

func (c *Client) dropPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for req := range c.pending {
		delete(c.pending, req)
	}
}

func (c *Client) EvictFromSlot(id domain.Identity) {
	monitoring.IncRoomEvent("evict_sent")
	if err := c.trySend(map[string]any{"type": "evict", "who": string(id)}); err != nil {
		log.Error().Err(err).Str("module", "adapters.room").Str("who", string(id)).Msg("evict not sent")
	}
}

func (c *Client) SendRoomMessage(text string) {
	if err := c.trySend(map[string]any{"type": "room_message", "text": text}); err != nil {
		log.Error().Err(err).Str("module", "adapters.room").Msg("room message not sent")
	}
}

func (c *Client) SendDirectMessage(id domain.Identity, text string) {
	if err := c.trySend(map[string]any{"type": "direct_message", "to": string(id), "text": text}); err != nil {
		log.Error().Err(err).Str("module", "adapters.room").Str("to", string(id)).Msg("direct message not sent")
	}
}

// trySend queues a frame without blocking; a full buffer means the
// connection is unhealthy and the frame is dropped.
func (c *Client) trySend(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

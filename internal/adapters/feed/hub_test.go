package feed

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagedive/deckqueue/internal/domain"
)

func startTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws/feed", func(c *gin.Context) {
		c.Set("client_token", c.Query("token"))
		hub.HandleFeed(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/feed"
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHub_BroadcastsQueueUpdates(t *testing.T) {
	hub, url := startTestHub(t)
	conn := dial(t, url, "dash-1")

	hub.PublishQueue(domain.QueueUpdate{
		Type:    domain.UpdateQueue,
		Members: []string{"alice", "bob"},
	})

	m := readJSON(t, conn)
	assert.Equal(t, domain.UpdateQueue, m["type"])
	assert.Equal(t, []any{"alice", "bob"}, m["members"])
}

func TestHub_ReplaysLastUpdatesToNewConnection(t *testing.T) {
	hub, url := startTestHub(t)

	hub.PublishQueue(domain.QueueUpdate{Type: domain.UpdateQueue, Members: []string{"alice"}})
	hub.PublishPerformance(domain.PerformanceUpdate{
		Type:      domain.UpdatePerformance,
		Performer: "alice",
		RoomLabel: "basement",
	})

	conn := dial(t, url, "late-dash")
	first := readJSON(t, conn)
	second := readJSON(t, conn)

	assert.Equal(t, domain.UpdateQueue, first["type"])
	assert.Equal(t, domain.UpdatePerformance, second["type"])
	assert.Equal(t, "alice", second["performer"])
}

func TestHub_PingPong(t *testing.T) {
	_, url := startTestHub(t)
	conn := dial(t, url, "probe")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	m := readJSON(t, conn)
	assert.Equal(t, "pong", m["type"])
}

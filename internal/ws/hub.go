package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/observability"
)

// Client is one websocket connection subscribed to one channel. Writes are
// serialized per connection.
type Client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *Client) write(payload []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains the websocket clients of every real-time channel.
type Hub struct {
	channels     map[string]map[*Client]struct{}
	writeTimeout time.Duration
	mu           sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub(writeTimeout time.Duration) *Hub {
	return &Hub{
		channels:     make(map[string]map[*Client]struct{}),
		writeTimeout: writeTimeout,
	}
}

// Subscribe registers a websocket connection on a channel.
func (h *Hub) Subscribe(channel string, conn *websocket.Conn, info ConnInfo) *Client {
	client := &Client{conn: conn, info: info}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
	return client
}

// Unsubscribe removes a client. It reports whether the client was registered.
func (h *Hub) Unsubscribe(channel string, client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.channels[channel]
	if !ok {
		return false
	}
	if _, ok := clients[client]; !ok {
		return false
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.channels, channel)
	}
	return true
}

// ClientCount returns the number of clients on a channel.
func (h *Hub) ClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Publish writes payload to every client of the channel and returns how many
// writes succeeded. Clients that fail a write are closed and dropped.
func (h *Hub) Publish(channel string, payload []byte) int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.channels[channel]))
	for client := range h.channels[channel] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		if err := client.write(payload, h.writeTimeout); err != nil {
			logging.Warn().Err(err).Str("channel", channel).Str("conn_id", client.info.ConnID).Msg("websocket write error")
			client.conn.Close()
			if h.Unsubscribe(channel, client) {
				h.publishWSError(channel, client, err)
			}
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) publishWSError(channel string, client *Client, err error) {
	info := client.info
	observability.IncWSEvent(info.Kind, "ws_error")
	_ = observability.PublishEvent(context.Background(), observability.WSRoutingKey(info.Kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   lifecyclePayload(channel, "ws_error", info, err.Error()),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func lifecyclePayload(channel, event string, info ConnInfo, reason string) observability.WSPayload {
	return observability.WSPayload{
		WS: observability.WSEvent{
			Kind:       info.Kind,
			Channel:    channel,
			Event:      event,
			ConnID:     info.ConnID,
			DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
			Reason:     reason,
		},
		Identity: observability.Identity{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	}
}

package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/developerakkoo/Porttivo-API/internal/config"
)

// frame is the wire format sent to subscribed clients.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// subscription is a client request to join or leave a channel.
type subscription struct {
	Action  string `json:"action"` // "join" or "leave"
	Channel string `json:"channel"`
}

// Hub fans events out to websocket clients grouped by channel key. It
// implements Sink.
type Hub struct {
	upgrader websocket.Upgrader
	queue    int

	mu       sync.RWMutex
	channels map[string]map[*client]struct{}
}

type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan frame
	done     chan struct{}
	shutdown sync.Once

	mu       sync.Mutex
	channels map[string]struct{}
}

// close tears the client down exactly once.
func (c *client) close() {
	c.shutdown.Do(func() {
		c.hub.detach(c)
		c.conn.Close()
		close(c.done)
	})
}

// NewHub creates a Hub from the realtime configuration.
func NewHub(cfg *config.RealtimeConfig) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		queue:    cfg.SendQueueSize,
		channels: make(map[string]map[*client]struct{}),
	}
}

// Emit sends the event to every client subscribed to the channel. Clients
// with a full send queue are dropped rather than blocking the caller.
func (h *Hub) Emit(channel, event string, payload any) {
	h.mu.RLock()
	subscribers := make([]*client, 0, len(h.channels[channel]))
	for c := range h.channels[channel] {
		subscribers = append(subscribers, c)
	}
	h.mu.RUnlock()

	f := frame{Event: event, Data: payload}
	for _, c := range subscribers {
		select {
		case c.send <- f:
		case <-c.done:
		default:
			slog.Warn("dropping slow websocket client", "channel", channel, "event", event)
			c.close()
		}
	}
}

// ServeHTTP upgrades the connection and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:      h,
		conn:     conn,
		send:     make(chan frame, h.queue),
		done:     make(chan struct{}),
		channels: make(map[string]struct{}),
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) subscribe(c *client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*client]struct{})
	}
	h.channels[channel][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.channels[channel]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// detach removes the client from every channel it joined.
func (h *Hub) detach(c *client) {
	c.mu.Lock()
	joined := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		joined = append(joined, ch)
	}
	c.channels = make(map[string]struct{})
	c.mu.Unlock()

	for _, ch := range joined {
		h.unsubscribe(c, ch)
	}
}

func (c *client) readPump() {
	defer c.close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var sub subscription
		if err := json.Unmarshal(data, &sub); err != nil {
			continue
		}
		switch sub.Action {
		case "join":
			c.mu.Lock()
			c.channels[sub.Channel] = struct{}{}
			c.mu.Unlock()
			c.hub.subscribe(c, sub.Channel)
		case "leave":
			c.mu.Lock()
			delete(c.channels, sub.Channel)
			c.mu.Unlock()
			c.hub.unsubscribe(c, sub.Channel)
		}
	}
}

func (c *client) writePump() {
	defer c.close()

	for {
		select {
		case f := <-c.send:
			if err := c.conn.WriteJSON(f); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeTimeout   = 10 * time.Second
	readTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxCommandSize = 4096
	sendBuffer     = 64
)

// Message is the envelope for everything sent to clients.
type Message struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Command is a control message from a client.
type Command struct {
	Type       string `json:"type"`
	Pair       string `json:"pair,omitempty"`
	IntervalMS int    `json:"interval_ms,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
}

// CommandHandler applies a client command.
type CommandHandler func(cmd Command) error

// ConnRecorder observes client traffic. infra.Metrics implements it.
type ConnRecorder interface {
	IncrementConnections()
	DecrementConnections()
	RecordCommand(kind string)
	RecordRateLimited()
}

// Hub fans messages out to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	handle   CommandHandler
	recorder ConnRecorder

	cmdRate  rate.Limit
	cmdBurst int

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a hub that limits each client to cmdRate commands per
// second with bursts of cmdBurst.
func NewHub(handle CommandHandler, recorder ConnRecorder, cmdRate float64, cmdBurst int) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		handle:   handle,
		recorder: recorder,
		cmdRate:  rate.Limit(cmdRate),
		cmdBurst: cmdBurst,
		clients:  make(map[*client]struct{}),
	}
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	once    sync.Once
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client. Clients whose buffer is full
// are disconnected rather than stalling the others.
func (h *Hub) Broadcast(kind string, data any) {
	msg, err := json.Marshal(Message{Type: kind, Data: data})
	if err != nil {
		slog.Error("Failed to encode broadcast", slog.String("type", kind), slog.Any("error", err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("Feed client too slow, disconnecting", slog.String("client", c.id))
		h.unregister(c)
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(h.cmdRate, h.cmdBurst),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	if h.recorder != nil {
		h.recorder.IncrementConnections()
	}
	slog.Info("Feed client connected", slog.String("client", c.id), slog.Int("clients", total))

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) unregister(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		total := len(h.clients)
		h.mu.Unlock()

		close(c.send)
		if h.recorder != nil {
			h.recorder.DecrementConnections()
		}
		slog.Info("Feed client disconnected", slog.String("client", c.id), slog.Int("clients", total))
	})
}

// writeLoop owns all writes to the connection.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readLoop reads commands until the client goes away.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Feed client read error", slog.String("client", c.id), slog.Any("error", err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		h.reply(c, h.dispatch(c, raw))
	}
}

func (h *Hub) dispatch(c *client, raw []byte) Message {
	if !c.limiter.Allow() {
		if h.recorder != nil {
			h.recorder.RecordRateLimited()
		}
		return Message{Type: "error", Error: "rate limit exceeded"}
	}

	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Message{Type: "error", Error: "malformed command"}
	}
	if h.recorder != nil && knownCommands[cmd.Type] {
		h.recorder.RecordCommand(cmd.Type)
	}
	if err := h.handle(cmd); err != nil {
		return Message{Type: "error", Data: cmd.Type, Error: err.Error()}
	}
	return Message{Type: "ack", Data: cmd.Type}
}

func (h *Hub) reply(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.unregister(c)
	}
}

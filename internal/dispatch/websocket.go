package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound messages buffered per client before it is considered stuck
	clientSendBuffer = 16
)

// ErrNoClient is returned when no client is connected under the requested id.
var ErrNoClient = errors.New("dispatch: websocket client not connected")

// ClientIDParam is the query parameter identifying a websocket client.
const ClientIDParam = "chat_id"

// InboundFunc receives text a client sends to the gateway.
type InboundFunc func(clientID string, content []byte)

// WebsocketHub is the local websocket gateway. Clients connect with
// ?chat_id=<id> and receive every message dispatched to that id.
type WebsocketHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	inbound  InboundFunc

	mu      sync.Mutex
	clients map[string]*wsClient
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// NewWebsocketHub returns an empty hub. inbound may be nil.
func NewWebsocketHub(logger *zap.Logger, inbound InboundFunc) *WebsocketHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebsocketHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		inbound: inbound,
		clients: make(map[string]*wsClient),
	}
}

// ServeHTTP upgrades the request and registers the client. A client that
// connects under an id already in use replaces the older connection.
func (h *WebsocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(ClientIDParam)
	if id == "" {
		http.Error(w, "missing "+ClientIDParam, http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{
		id:   id,
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	if old, ok := h.clients[id]; ok {
		old.close()
	}
	h.clients[id] = c
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("client_id", id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go h.writePump(c)
	h.readPump(c)
}

func (h *WebsocketHub) unregister(c *wsClient) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

func (h *WebsocketHub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Info("websocket client disconnected", zap.String("client_id", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
		if h.inbound != nil {
			h.inbound(c.id, data)
		}
	}
}

func (h *WebsocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// SendWebsocket queues content for the client. The content is copied, so the
// caller may reuse the slice.
func (h *WebsocketHub) SendWebsocket(ctx context.Context, clientID string, content []byte) error {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoClient, clientID)
	}

	msg := append([]byte(nil), content...)
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return fmt.Errorf("%w: %s", ErrNoClient, clientID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of connected clients.
func (h *WebsocketHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *WebsocketHub) Close() {
	h.mu.Lock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	h.mu.Unlock()
}

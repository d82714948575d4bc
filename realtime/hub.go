package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
	recentEventCap = 1024
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{Hub: hub, Conn: conn, Send: make(chan []byte, sendBuffer), Room: room}
}

type subscription struct {
	id uint64
	fn func(Event)
}

// Hub keeps websocket clients and in-process subscribers grouped by topic.
// Events carrying an ID seen recently are dropped, so redelivery is harmless.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	subs    map[string][]subscription
	nextSub uint64

	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]bool),
		subs:       make(map[string][]subscription),
		seen:       make(map[string]struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("client registered", zap.String("room", client.Room), zap.Int("clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.close()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
					h.logger.Debug("client unregistered", zap.String("room", client.Room), zap.Int("clients", len(clients)))
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.rooms {
		for c := range clients {
			c.close()
		}
		delete(h.rooms, room)
	}
}

func (c *Client) close() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if !c.IsClosed {
		close(c.Send)
		c.IsClosed = true
	}
}

// Join hands a client to the hub; it reports false once the hub stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Subscribe is the in-process form of the feed that websocket clients get:
// fn receives every event published on topic, synchronously on the
// publishing goroutine, until the returned function is called. Code embedding the hub uses it to react to
// changes without a socket.
func (h *Hub) Subscribe(topic string, fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs[topic] = append(h.subs[topic], subscription{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		list := h.subs[topic]
		for i, s := range list {
			if s.id == id {
				h.subs[topic] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(h.subs[topic]) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Publish delivers the event to the topic's room and subscribers.
func (h *Hub) Publish(_ context.Context, ev Event) {
	if !h.markSeen(ev.ID) {
		return
	}

	messageBytes, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("topic", ev.Topic), zap.Error(err))
		return
	}

	h.mu.RLock()
	listeners := append([]subscription(nil), h.subs[ev.Topic]...)
	for client := range h.rooms[ev.Topic] {
		client.Mu.Lock()
		if !client.IsClosed {
			select {
			case client.Send <- messageBytes:
			default:
				h.logger.Warn("client send buffer full, dropping event", zap.String("room", ev.Topic), zap.String("event_id", ev.ID))
			}
		}
		client.Mu.Unlock()
	}
	h.mu.RUnlock()

	for _, s := range listeners {
		s.fn(ev)
	}
}

func (h *Hub) markSeen(id string) bool {
	if id == "" {
		return true
	}
	h.seenMu.Lock()
	defer h.seenMu.Unlock()
	if _, dup := h.seen[id]; dup {
		return false
	}
	h.seen[id] = struct{}{}
	h.seenOrder = append(h.seenOrder, id)
	if len(h.seenOrder) > recentEventCap {
		delete(h.seen, h.seenOrder[0])
		h.seenOrder = h.seenOrder[1:]
	}
	return true
}

// RoomSize reports how many websocket clients watch a topic.
func (h *Hub) RoomSize(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}

func (c *Client) ReadPump(logger *zap.Logger) {
	defer func() {
		c.Hub.Leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket closed unexpectedly", zap.String("room", c.Room), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) WritePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("room", c.Room), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("websocket ping failed", zap.String("room", c.Room), zap.Error(err))
				return
			}
		}
	}
}

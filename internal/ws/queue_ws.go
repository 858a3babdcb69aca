package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/phuslu/log"

	"leap/internal/queue"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
	// AllVenues is the subscription key of clients watching every venue.
	AllVenues = ""
)

// Hub keeps websocket clients grouped by venue and fans queue events out to them.
// It implements queue.Broadcaster.
type Hub struct {
	// venue id -> connected clients; AllVenues holds clients that watch everything.
	clients map[string]map[*Client]bool
	// Registration of a new client.
	register chan *Client
	// Removal of a client.
	unregister chan *Client
	// Messages for one venue.
	broadcast chan BroadcastMessage
	// Closed once Run returns.
	done chan struct{}
	// Guards clients.
	mu     sync.RWMutex
	logger *log.Logger
}

// BroadcastMessage is an encoded event addressed to one venue.
type BroadcastMessage struct {
	VenueID string
	Message []byte
}

// envelope is the wire form of an event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeEvent(ev queue.Event) ([]byte, error) {
	return json.Marshal(envelope{Event: ev.Name, Data: ev.Payload})
}

// NewHub creates a Hub. Events emitted before Run starts are buffered.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage, sendBuffer),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes the hub channels until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for venueID, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, venueID)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.VenueID] == nil {
				h.clients[client.VenueID] = make(map[*Client]bool)
			}
			h.clients[client.VenueID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			h.sendLocked(message.VenueID, message.Message)
			if message.VenueID != AllVenues {
				h.sendLocked(AllVenues, message.Message)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.VenueID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.VenueID)
	}
}

// sendLocked queues msg for every client of key. A client whose buffer is full is dropped; it
// resynchronizes through the status endpoint when it reconnects.
func (h *Hub) sendLocked(key string, msg []byte) {
	for client := range h.clients[key] {
		select {
		case client.Send <- msg:
		default:
			h.logger.Warn().Str("venue_id", key).Str("remote", client.remote).Msg("dropping slow websocket client")
			h.removeLocked(client)
		}
	}
}

// Emit encodes ev and hands it to the hub without waiting for subscribers.
func (h *Hub) Emit(ev queue.Event) {
	msg, err := encodeEvent(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", ev.Name).Msg("failed to encode queue event")
		return
	}
	h.Deliver(ev.VenueID, msg)
}

// Deliver queues an already encoded message for venueID's subscribers.
func (h *Hub) Deliver(venueID string, msg []byte) {
	select {
	case h.broadcast <- BroadcastMessage{VenueID: venueID, Message: msg}:
	default:
		h.logger.Warn().Str("venue_id", venueID).Msg("hub broadcast buffer full, event dropped")
	}
}

// SubscriberCount returns the number of clients registered under key.
func (h *Hub) SubscriberCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// Client is one websocket connection.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	VenueID string
	remote  string
}

// readPump only watches for disconnects and pongs; clients never send commands over the socket.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Debug().Err(err).Str("remote", c.remote).Msg("websocket closed")
			}
			return
		}
	}
}

// writePump forwards messages from Send and keeps the connection alive with pings.
func (c *Client) writePump() {
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
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Serve upgrades the request and subscribes the connection to venueID (AllVenues for every venue).
// Authorization is the caller's job.
func (h *Hub) Serve(c *gin.Context, venueID string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("venue_id", venueID).Msg("websocket upgrade failed")
		return
	}
	client := &Client{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		VenueID: venueID,
		remote:  c.ClientIP(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// Package websocket streams deletion events to connected clients.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"turbo-delete/internal/metrics"
	"turbo-delete/internal/report"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
	queueSize  = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Clients authenticate with a bearer token, not cookies
		return true
	},
}

// Event types
const (
	TypeStatus   = "status"
	TypeProgress = "progress"
)

// Event is one message on the stream
type Event struct {
	JobID       string    `json:"job_id"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Message     string    `json:"message,omitempty"`
	Total       uint64    `json:"total"`
	Current     uint64    `json:"current"`
	CurrentFile string    `json:"current_file,omitempty"`
	Done        bool      `json:"done,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// jobID restricts the stream to one job when set
	jobID string
}

type envelope struct {
	jobID string
	data  []byte
}

// Hub maintains active WebSocket connections
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	count      atomic.Int32
	logger     zerolog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	metrics.Init()
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, queueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			metrics.WebsocketClients.Inc()
			h.logger.Debug().Int("clients", len(h.clients)).Str("job_id", client.jobID).Msg("client connected")

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Debug().Int("clients", len(h.clients)).Msg("client disconnected")
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.jobID != "" && client.jobID != msg.jobID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					h.logger.Warn().Msg("slow websocket client dropped")
					h.drop(client)
				}
			}
		}
	}
}

// Stop disconnects all clients and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Add(-1)
	metrics.WebsocketClients.Dec()
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Publish queues an event for delivery. It never blocks; events are
// discarded when the queue is full.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal event")
		return
	}
	select {
	case h.broadcast <- envelope{jobID: ev.JobID, data: data}:
	default:
		h.logger.Debug().Str("job_id", ev.JobID).Str("type", ev.Type).Msg("event queue full, dropping")
	}
}

// Sink returns a report.Sink that publishes the events of one job
func (h *Hub) Sink(jobID string) report.Sink {
	return &jobSink{hub: h, jobID: jobID}
}

type jobSink struct {
	hub   *Hub
	jobID string
}

func (s *jobSink) Status(msg string) {
	s.hub.Publish(Event{JobID: s.jobID, Type: TypeStatus, Message: msg})
}

func (s *jobSink) Progress(ev report.ProgressEvent) {
	s.hub.Publish(Event{
		JobID:       s.jobID,
		Type:        TypeProgress,
		Total:       ev.Total,
		Current:     ev.Current,
		CurrentFile: ev.CurrentFile,
		Done:        ev.Done,
	})
}

// HandleEvents upgrades the connection and streams events. An optional
// job_id query parameter limits the stream to that job.
func HandleEvents(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := &Client{
			hub:   hub,
			conn:  conn,
			send:  make(chan []byte, sendBuffer),
			jobID: r.URL.Query().Get("job_id"),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump drains the connection so control frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("websocket read")
			}
			return
		}
	}
}

// writePump writes messages to WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

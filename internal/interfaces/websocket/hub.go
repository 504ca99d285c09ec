// Package websocket pushes board changes to connected browsers.
// The hub listens on the application dispatcher and forwards each task event
// to the clients watching the boards it touched.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/dispatcher"
	"github.com/garyjia/deptboard/internal/domain/event"
)

const subscriberName = "board-feed"

// FeedEvents are the event types forwarded to board clients
var FeedEvents = []event.Type{
	event.TypeTaskCreated,
	event.TypeTaskMoved,
	event.TypeTaskArchived,
	event.TypeTaskDeleted,
	event.TypeColumnReindexed,
}

// Message is one frame sent to a board client. It tells the client which
// lane changed; clients re-read the lane rather than applying the frame.
type Message struct {
	Type      event.Type             `json:"type"`
	TaskID    string                 `json:"task_id,omitempty"`
	BoardID   string                 `json:"board_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// HubConfig holds the feed tunables
type HubConfig struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (c HubConfig) withDefaults() HubConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 16
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	return c
}

type client struct {
	boardID string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub tracks board clients and fans events out to them
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	closed  bool
}

// NewHub creates a new board feed hub
func NewHub(cfg HubConfig, logger *zap.Logger) *Hub {
	return &Hub{
		cfg: cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[string]map[*client]struct{}),
	}
}

// Register subscribes the hub to the dispatcher
func (h *Hub) Register(d dispatcher.Dispatcher) {
	d.SubscribeMany(FeedEvents, subscriberName, h.HandleEvent)
}

// HandleEvent forwards evt to every client of the boards it touched.
// Delivery is best effort and never fails the publisher.
func (h *Hub) HandleEvent(ctx context.Context, evt *event.Event) error {
	for _, boardID := range affectedBoards(evt) {
		msg := Message{
			Type:      evt.Type,
			TaskID:    evt.TaskID,
			BoardID:   boardID,
			Payload:   evt.Payload,
			Timestamp: evt.Timestamp,
		}
		data, err := json.Marshal(msg)
		if err != nil {
			h.logger.Error("Failed to encode board frame", zap.String("event_id", evt.ID), zap.Error(err))
			continue
		}
		h.broadcast(boardID, data)
	}
	return nil
}

// affectedBoards returns the distinct boards an event touched. A move across
// boards reaches both the source and the target.
func affectedBoards(evt *event.Event) []string {
	var boards []string
	for _, key := range []string{event.KeyFromBoard, event.KeyBoardID} {
		id := evt.GetPayloadString(key)
		if id == "" {
			continue
		}
		if len(boards) == 1 && boards[0] == id {
			continue
		}
		boards = append(boards, id)
	}
	return boards
}

func (h *Hub) broadcast(boardID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[boardID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping slow board client", zap.String("board_id", boardID))
			h.removeLocked(c)
		}
	}
}

func (h *Hub) add(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("board feed is closed")
	}
	set, ok := h.clients[c.boardID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.boardID] = set
	}
	set[c] = struct{}{}
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	set, ok := h.clients[c.boardID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.boardID)
	}
	close(c.send)
}

// ClientCount returns the number of clients watching a board
func (h *Hub) ClientCount(boardID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[boardID])
}

// ServeBoard upgrades the request and streams boardID's events until the
// client goes away.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request, boardID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	c := &client{
		boardID: boardID,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
	}
	if err := h.add(c); err != nil {
		_ = conn.Close()
		return err
	}

	h.logger.Info("Board client connected",
		zap.String("board_id", boardID),
		zap.String("remote_addr", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// readPump discards client frames and returns once the connection fails
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		h.logger.Info("Board client disconnected", zap.String("board_id", c.boardID))
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
	h.logger.Info("Board feed closed")
	return nil
}

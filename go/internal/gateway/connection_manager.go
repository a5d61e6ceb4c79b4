// Package gateway accepts websocket connections, feeds client actions into
// the session layer and fans outbound events back out.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mkessler/typerace/go/internal/event"
)

// MessageHandler receives connection lifecycle callbacks and inbound
// actions. The session layer implements it.
type MessageHandler interface {
	HandleConnect(connID, handle string)
	HandleAction(connID string, evt event.Event)
	HandleDisconnect(connID string)
}

// ConnectionManager manages websocket connections and room-scoped fan-out.
type ConnectionManager struct {
	mu        sync.RWMutex
	conns     map[string]*Connection
	roomConns map[string]map[*Connection]bool

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	broadcastCh chan broadcastMessage
}

// Connection represents one websocket client.
type Connection struct {
	ID      string
	Handle  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds websocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// broadcastMessage is one pre-marshaled payload with its fan-out scope:
// a single connection, one room, or everyone.
type broadcastMessage struct {
	connID string
	roomID string
	data   []byte
}

// DefaultConnectionConfig returns the default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a websocket connection manager. The message
// handler is attached afterwards via SetHandler to break the construction
// cycle with the session layer.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns:     make(map[string]*Connection),
		roomConns: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 1000),
	}
}

// SetHandler attaches the inbound message handler.
func (cm *ConnectionManager) SetHandler(h MessageHandler) {
	cm.handler = h
}

// Start drains the broadcast queue until the context is cancelled. Running
// it on a single goroutine keeps fan-out ordered: all clients observe
// events in the order the server processed them.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket, registers the
// connection and starts its pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, handle string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Handle:      handle,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[connection.ID] = connection
	cm.mu.Unlock()

	if cm.handler != nil {
		cm.handler.HandleConnect(connection.ID, handle)
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("handle", handle).
		Msg("websocket connection established")
	return nil
}

// JoinRoom adds a connection to a room's broadcast group.
func (cm *ConnectionManager) JoinRoom(connID, roomID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, ok := cm.conns[connID]
	if !ok {
		return
	}
	if cm.roomConns[roomID] == nil {
		cm.roomConns[roomID] = make(map[*Connection]bool)
	}
	cm.roomConns[roomID][conn] = true
}

// LeaveRoom removes a connection from a room's broadcast group.
func (cm *ConnectionManager) LeaveRoom(connID, roomID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, ok := cm.conns[connID]
	if !ok {
		return
	}
	if pool, exists := cm.roomConns[roomID]; exists {
		delete(pool, conn)
		if len(pool) == 0 {
			delete(cm.roomConns, roomID)
		}
	}
}

// BroadcastToRoom queues an event for every connection in a room.
func (cm *ConnectionManager) BroadcastToRoom(roomID string, evt event.Event) {
	cm.enqueue(broadcastMessage{roomID: roomID, data: mustMarshal(evt)})
}

// BroadcastToConn queues an event for a single connection.
func (cm *ConnectionManager) BroadcastToConn(connID string, evt event.Event) {
	cm.enqueue(broadcastMessage{connID: connID, data: mustMarshal(evt)})
}

// BroadcastAll queues an event for every live connection.
func (cm *ConnectionManager) BroadcastAll(evt event.Event) {
	cm.enqueue(broadcastMessage{data: mustMarshal(evt)})
}

func (cm *ConnectionManager) enqueue(msg broadcastMessage) {
	if msg.data == nil {
		return
	}
	select {
	case cm.broadcastCh <- msg:
	default:
		log.Warn().Str("room_id", msg.roomID).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast resolves a message's targets and writes to their send
// buffers. Slow or dead connections are closed rather than blocked on.
func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	switch {
	case message.connID != "":
		if conn, ok := cm.conns[message.connID]; ok {
			targets = append(targets, conn)
		}
	case message.roomID != "":
		for conn := range cm.roomConns[message.roomID] {
			targets = append(targets, conn)
		}
	default:
		for _, conn := range cm.conns {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.data:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// unregisterConnection removes a connection from every registry.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.conns[conn.ID]; !exists {
		return
	}
	delete(cm.conns, conn.ID)
	close(conn.Send)

	for roomID, pool := range cm.roomConns {
		if pool[conn] {
			delete(pool, conn)
			if len(pool) == 0 {
				delete(cm.roomConns, roomID)
			}
		}
	}

	log.Info().Str("connection_id", conn.ID).Msg("connection unregistered")
}

// ConnectionCount reports the number of live connections.
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.conns)
}

// writePump pushes queued messages and pings to the websocket.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound actions and hands them to the message handler.
// Transport failure triggers cleanup, never an application error.
func (c *Connection) readPump() {
	defer func() {
		if c.Manager.handler != nil {
			c.Manager.handler.HandleDisconnect(c.ID)
		}
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		var evt event.Event
		if err := json.Unmarshal(message, &evt); err != nil {
			log.Debug().
				Err(err).
				Str("connection_id", c.ID).
				Msg("dropping malformed client message")
			continue
		}
		if c.Manager.handler != nil {
			c.Manager.handler.HandleAction(c.ID, evt)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func mustMarshal(evt event.Event) []byte {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("type", string(evt.Type)).Msg("failed to marshal event")
		return nil
	}
	return data
}

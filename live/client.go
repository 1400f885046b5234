package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ControlMessage is what a connected client may send upstream: room
// membership changes only. Everything authoritative flows the other way.
type ControlMessage struct {
	Action       string `json:"action"`
	TournamentID int    `json:"tournament_id,omitempty"`
	FieldID      int    `json:"field_id,omitempty"`
}

const (
	ActionJoinTournament  = "join_tournament"
	ActionLeaveTournament = "leave_tournament"
	ActionJoinField       = "join_field"
	ActionLeaveField      = "leave_field"
)

// Client is one websocket subscriber. It belongs to one tournament room
// and at most one field room at a time.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu             sync.Mutex
	isClosed       bool
	tournamentRoom string
	fieldRoom      string

	logger *slog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, tournamentID int, fieldID *int, logger *slog.Logger) *Client {
	c := &Client{
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, 256),
		tournamentRoom: TournamentRoom(tournamentID),
		logger:         logger,
	}
	if fieldID != nil {
		c.fieldRoom = FieldRoom(*fieldID)
	}
	return c
}

func (c *Client) rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fieldRoom == "" {
		return []string{c.tournamentRoom}
	}
	return []string{c.tournamentRoom, c.fieldRoom}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.send)
		c.isClosed = true
	}
}

// handleControl applies a room membership request from the wire. A
// malformed or unknown action is logged and dropped; the connection
// stays open.
func (c *Client) handleControl(raw []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("malformed control message", slog.Any("error", err))
		return
	}
	switch msg.Action {
	case ActionJoinTournament:
		if msg.TournamentID <= 0 {
			c.logger.Warn("join_tournament without tournament_id")
			return
		}
		room := TournamentRoom(msg.TournamentID)
		c.mu.Lock()
		old := c.tournamentRoom
		c.tournamentRoom = room
		c.mu.Unlock()
		if old != "" && old != room {
			c.hub.leave(c, old)
		}
		c.hub.join(c, room)
	case ActionLeaveTournament:
		c.mu.Lock()
		old := c.tournamentRoom
		c.tournamentRoom = ""
		c.mu.Unlock()
		if old != "" {
			c.hub.leave(c, old)
		}
	case ActionJoinField:
		if msg.FieldID <= 0 {
			c.logger.Warn("join_field without field_id")
			return
		}
		room := FieldRoom(msg.FieldID)
		c.mu.Lock()
		old := c.fieldRoom
		c.fieldRoom = room
		c.mu.Unlock()
		if old != "" && old != room {
			c.hub.leave(c, old)
		}
		c.hub.join(c, room)
	case ActionLeaveField:
		c.mu.Lock()
		old := c.fieldRoom
		c.fieldRoom = ""
		c.mu.Unlock()
		if old != "" {
			c.hub.leave(c, old)
		}
	default:
		c.logger.Warn("unknown control action", slog.String("action", msg.Action))
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", slog.Any("error", err))
			}
			break
		}
		c.handleControl(message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush whatever queued up behind this message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

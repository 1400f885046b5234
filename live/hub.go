package live

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// TournamentRoom is the room key for tournament-wide events.
func TournamentRoom(tournamentID int) string {
	return fmt.Sprintf("tournament:%d", tournamentID)
}

// FieldRoom is the room key for field-scoped subscriptions.
func FieldRoom(fieldID int) string {
	return fmt.Sprintf("field:%d", fieldID)
}

// Hub keeps the room registry for all live connections. Rooms are
// ephemeral: a room exists while at least one client is joined and is
// dropped with its last member. Register/Unregister are serialized
// through Run; room membership changes and broadcasts share the mutex.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// Run processes connection registration until done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case client := <-h.Register:
			h.join(client, client.rooms()...)
		case client := <-h.Unregister:
			h.drop(client)
		case <-done:
			return
		}
	}
}

func (h *Hub) join(client *Client, rooms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		if room == "" {
			continue
		}
		if _, ok := h.rooms[room]; !ok {
			h.rooms[room] = make(map[*Client]bool)
		}
		h.rooms[room][client] = true
		h.logger.Debug("client joined room", slog.String("room", room), slog.Int("size", len(h.rooms[room])))
	}
}

func (h *Hub) leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) leaveLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
		h.logger.Debug("room closed", slog.String("room", room))
	}
}

// drop removes the client from every room and closes its send channel.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		if members[client] {
			h.leaveLocked(client, room)
		}
	}
	client.closeSend()
}

// RoomSize reports the current number of clients joined to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom fans an encoded event out to every client in the room.
// Slow clients whose send buffers are full are skipped, not blocked on;
// at-least-once delivery to healthy subscribers, no replay for anyone
// else.
func (h *Hub) BroadcastToRoom(room string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		client.mu.Lock()
		if client.isClosed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- message:
		default:
			h.logger.Warn("client send buffer full, dropping event", slog.String("room", room))
		}
		client.mu.Unlock()
	}
}

package chat

import (
	"context"
	"os"
	"sync"

	"github.com/Aeshi-Nero/Mind-Haven/internal/events"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "chat").Logger()

const sendBuffer = 64

// Hub fans group messages out to the websocket clients subscribed to each group.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.groupID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.groupID] = room
	}
	room[c] = struct{}{}
	logger.Info().Int64("group_id", c.groupID).Int64("user_id", c.userID).Msgf("Client connected, %d in group", len(room))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	room, ok := h.rooms[c.groupID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}

	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.groupID)
	}
	close(c.send)
}

// Broadcast queues payload for every client of the group. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(groupID int64, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[groupID] {
		select {
		case c.send <- payload:
		default:
			logger.Warn().Int64("group_id", groupID).Int64("user_id", c.userID).Msg("Dropping slow client")
			h.removeLocked(c)
		}
	}
}

// CloseGroup disconnects every client of the group.
func (h *Hub) CloseGroup(groupID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[groupID] {
		h.removeLocked(c)
	}
}

func (h *Hub) Subscribers(groupID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		for c := range room {
			h.removeLocked(c)
		}
	}
}

type groupRef struct {
	GroupID int64 `json:"group_id"`
	ID      int64 `json:"id"`
}

// HandleEvent is an events.Handler: new group messages are pushed, deleted groups are closed.
func (h *Hub) HandleEvent(_ context.Context, e events.Event) {
	switch e.Type {
	case events.GroupMessageCreated:
		var ref groupRef
		if err := e.Decode(&ref); err != nil || ref.GroupID == 0 {
			logger.Error().Err(err).Str("key", e.Key).Msg("Error decoding group message event")
			return
		}
		h.Broadcast(ref.GroupID, e.Payload)
	case events.GroupDeleted:
		var ref groupRef
		if err := e.Decode(&ref); err != nil || ref.ID == 0 {
			logger.Error().Err(err).Str("key", e.Key).Msg("Error decoding group deleted event")
			return
		}
		h.CloseGroup(ref.ID)
	}
}

// ServeClient subscribes conn to the group and blocks until the connection ends.
func (h *Hub) ServeClient(conn *websocket.Conn, groupID, userID int64) {
	c := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		groupID: groupID,
		userID:  userID,
	}
	h.Register(c)

	go c.writePump()
	c.readPump()
}

// Package ws pushes order change signals to connected browsers and to
// in-process subscribers.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/canteen-pickup/api/internal/events"
	"github.com/google/uuid"
)

// StaffRoom receives every order event.
const StaffRoom = "staff"

// UserRoom is the room for one customer's own orders.
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Message is what a WebSocket client receives.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// orderPayload carries ids and status only; clients re-fetch the order.
type orderPayload struct {
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

// roomMessage is an internal struct for routing messages to rooms
type roomMessage struct {
	rooms   []string
	message Message
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage

	// done is closed when Run returns.
	done chan struct{}

	// In-process listeners; each channel holds at most one pending signal.
	subscribers map[chan struct{}]bool

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *roomMessage, 256),
		done:        make(chan struct{}),
		subscribers: make(map[chan struct{}]bool),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case rm := <-h.broadcast:
			data, err := json.Marshal(rm.message)
			if err != nil {
				log.Printf("ERROR: marshal ws message: %v", err)
				continue
			}

			h.mu.Lock()
			for _, room := range rm.rooms {
				for client := range h.rooms[room] {
					select {
					case client.send <- data:
					default:
						// Client's send buffer is full, close and unregister
						h.remove(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// join registers client unless the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// remove drops client from its room. Caller holds h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Broadcast queues msg for the given rooms. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg Message, rooms ...string) {
	select {
	case h.broadcast <- &roomMessage{rooms: rooms, message: msg}:
	default:
		log.Printf("WARNING: ws broadcast queue full, dropping %s", msg.Type)
	}
}

// Notify sends e to the staff room and to the owning customer's room, and
// signals in-process subscribers.
func (h *Hub) Notify(ctx context.Context, e events.Event) {
	payload, err := json.Marshal(orderPayload{OrderID: e.OrderID, Status: e.Status})
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
		return
	}
	rooms := []string{StaffRoom}
	if e.UserID != uuid.Nil {
		rooms = append(rooms, UserRoom(e.UserID))
	}
	h.Broadcast(Message{Type: e.Type, Payload: payload}, rooms...)
	h.signal()
}

// Subscribe returns a channel that receives a value after order changes.
// Signals coalesce: a slow reader sees one pending signal however many changes
// happened, and should re-read state. The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subscribers[ch] = true
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subscribers, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func (h *Hub) signal() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ClientCount returns the number of connected clients in room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

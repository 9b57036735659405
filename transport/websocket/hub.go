package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/vanroute/game/engine"
	"github.com/wricardo/mcp-training/vanroute/game/scene"
)

// Messages queued for the hub loop before broadcasts are dropped.
const broadcastBuffer = 1024

// Events sent to clients
const (
	EventStateUpdate = "state_update"
	EventDraw        = "draw"
	EventSnapshot    = "snapshot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is one frame sent to the renderers of a session. Seq grows by one
// for every message published for the session, including dropped ones, so a
// renderer that sees a gap should ask for a resync. A snapshot carries the
// Seq of the last message it already reflects.
type Message struct {
	SessionID string            `json:"session_id"`
	Seq       uint64            `json:"seq"`
	Event     string            `json:"event"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Data      any               `json:"data,omitempty"`
}

// SnapshotFunc returns what a renderer needs to draw a session from scratch.
// It calls mark while the state it captures cannot change; the snapshot then
// carries the seq of the last message that state reflects. Without a call to
// mark the seq read before the snapshot is used.
type SnapshotFunc func(sessionID string, mark func()) (any, error)

// Hub fans session messages out to the browsers watching each session. Only
// the Run loop changes who is watching.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Client]struct{}
	snapshot SnapshotFunc

	seqMu sync.Mutex
	seq   map[string]uint64

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	resync     chan *Client

	// Closed when Run returns
	done chan struct{}
}

// NewHub creates a hub. Call Run to start delivering messages.
func NewHub() *Hub {
	return &Hub{
		watchers:   make(map[string]map[*Client]struct{}),
		seq:        make(map[string]uint64),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resync:     make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetSnapshotSource sets how snapshots are built for joining and resyncing
// clients. Without one, clients only receive live messages.
func (h *Hub) SetSnapshotSource(fn SnapshotFunc) {
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}

// Run delivers messages until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.watch(client)
			h.sendSnapshot(client)

		case client := <-h.unregister:
			h.unwatch(client)

		case client := <-h.resync:
			h.sendSnapshot(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// ServeWS upgrades the request and attaches the connection to sessionID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn, sessionID)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastToSession publishes the session's game state.
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.publish(&Message{SessionID: sessionID, Event: EventStateUpdate, GameState: state})
}

// BroadcastEvent publishes a custom event for a session.
func (h *Hub) BroadcastEvent(sessionID string, event string, data any) {
	h.publish(&Message{SessionID: sessionID, Event: event, Data: data})
}

// SessionSink streams a session's draw commands to its clients.
func (h *Hub) SessionSink(sessionID string) scene.Sink {
	return scene.SinkFunc(func(cmd scene.Command) {
		h.BroadcastEvent(sessionID, EventDraw, cmd)
	})
}

// ClientCount returns the number of clients watching a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[sessionID])
}

// LastSeq returns the sequence number of the last message published for a
// session.
func (h *Hub) LastSeq(sessionID string) uint64 {
	h.seqMu.Lock()
	defer h.seqMu.Unlock()
	return h.seq[sessionID]
}

// publish never blocks: draw commands are published with the scene locked.
func (h *Hub) publish(message *Message) {
	h.seqMu.Lock()
	h.seq[message.SessionID]++
	message.Seq = h.seq[message.SessionID]
	h.seqMu.Unlock()

	select {
	case h.broadcast <- message:
	default:
		log.Printf("[WS] Queue full, dropping %s #%d for session %s", message.Event, message.Seq, message.SessionID)
	}
}

func (h *Hub) watch(client *Client) {
	h.mu.Lock()
	clients := h.watchers[client.sessionID]
	if clients == nil {
		clients = make(map[*Client]struct{})
		h.watchers[client.sessionID] = clients
	}
	clients[client] = struct{}{}
	count := len(clients)
	h.mu.Unlock()

	log.Printf("[WS] Client joined session %s (%d watching)", client.sessionID, count)
}

func (h *Hub) unwatch(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.watchers[client.sessionID]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.watchers, client.sessionID)
	}

	log.Printf("[WS] Client left session %s (%d watching)", client.sessionID, len(clients))
}

// sendSnapshot gives one client the full scene of its session.
func (h *Hub) sendSnapshot(client *Client) {
	h.mu.RLock()
	fn := h.snapshot
	_, watching := h.watchers[client.sessionID][client]
	h.mu.RUnlock()
	if fn == nil || !watching {
		return
	}

	seq := h.LastSeq(client.sessionID)
	data, err := fn(client.sessionID, func() { seq = h.LastSeq(client.sessionID) })
	if err != nil {
		log.Printf("[WS] Snapshot for session %s failed: %v", client.sessionID, err)
		return
	}

	frame, err := json.Marshal(&Message{SessionID: client.sessionID, Seq: seq, Event: EventSnapshot, Data: data})
	if err != nil {
		log.Printf("[WS] Failed to encode snapshot: %v", err)
		return
	}
	if !client.offer(frame) {
		h.unwatch(client)
	}
}

// deliver sends message to every client of its session. Clients whose
// buffer is full are disconnected; they resync when they reconnect.
func (h *Hub) deliver(message *Message) {
	frame, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Failed to encode %s: %v", message.Event, err)
		return
	}

	var lagging []*Client
	h.mu.RLock()
	for client := range h.watchers[message.SessionID] {
		if !client.offer(frame) {
			lagging = append(lagging, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range lagging {
		h.unwatch(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.watchers {
		for client := range clients {
			close(client.send)
		}
		delete(h.watchers, id)
	}
}

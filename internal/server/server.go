package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/watchparty/server/internal/session"
	"github.com/watchparty/server/internal/stats"
)

// WatchServer bridges websocket clients and the session registry: it
// routes inbound client messages to room operations and fans session
// events back out to the clients attached to each room.
type WatchServer struct {
	log      *log.Logger
	registry *session.Registry
	stats    stats.StatsProvider

	clients     map[*Client]struct{}
	clientsLock sync.Mutex

	roomClients map[string]map[*Client]struct{}
	roomsLock   sync.RWMutex

	eventChan chan *session.Event
	stop      chan struct{}
	done      chan struct{}
}

func NewWatchServer(logger *log.Logger, sp stats.StatsProvider) *WatchServer {
	return &WatchServer{
		log:         logger,
		stats:       sp,
		clients:     make(map[*Client]struct{}),
		roomClients: make(map[string]map[*Client]struct{}),
		eventChan:   make(chan *session.Event, 256),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// SetRegistry wires the session registry. The registry takes the
// server as its event sink, so the two are constructed in sequence.
func (ws *WatchServer) SetRegistry(reg *session.Registry) {
	ws.registry = reg
}

// Publish implements session.EventSink. It never blocks the room; a
// full queue drops the event for all members rather than one.
func (ws *WatchServer) Publish(ev *session.Event) {
	select {
	case ws.eventChan <- ev:
	default:
		ws.log.Printf("event channel full, dropping event for room %q", ev.RoomId)
	}
}

// Run delivers session events to attached clients in the order the
// rooms applied them.
func (ws *WatchServer) Run() {
	for {
		select {
		case ev := <-ws.eventChan:
			ws.deliver(ev)
		case <-ws.stop:
			close(ws.done)
			return
		}
	}
}

func (ws *WatchServer) deliver(ev *session.Event) {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: ev.Timestamp},
		Event:       ev,
	}

	ws.roomsLock.RLock()
	clients := make([]*Client, 0, len(ws.roomClients[ev.RoomId]))
	for c := range ws.roomClients[ev.RoomId] {
		clients = append(clients, c)
	}
	ws.roomsLock.RUnlock()

	for _, c := range clients {
		c.queueMessage(msg)
	}

	if ev.RoomEnded != nil {
		ws.dropRoom(ev.RoomId)
		return
	}

	// a kicked member no longer receives room traffic
	if ev.ParticipantLeft != nil {
		for _, c := range clients {
			if c.user.Id == ev.ParticipantLeft.UserId {
				ws.detachClient(c)
			}
		}
	}
}

func (ws *WatchServer) RegisterClient(c *Client) {
	ws.clientsLock.Lock()
	defer ws.clientsLock.Unlock()
	ws.clients[c] = struct{}{}
	ws.stats.Incr(stats.MetricActiveConnections)
}

func (ws *WatchServer) DeregisterClient(c *Client) {
	ws.clientsLock.Lock()
	defer ws.clientsLock.Unlock()
	if _, ok := ws.clients[c]; ok {
		delete(ws.clients, c)
		ws.stats.Decr(stats.MetricActiveConnections)
	}
}

// attachClient records c as a receiver for roomId's events and keeps
// the registry's attachment count in sync.
func (ws *WatchServer) attachClient(c *Client, roomId string) {
	ws.detachClient(c)

	ws.roomsLock.Lock()
	if ws.roomClients[roomId] == nil {
		ws.roomClients[roomId] = make(map[*Client]struct{})
	}
	ws.roomClients[roomId][c] = struct{}{}
	c.setRoom(roomId)
	ws.roomsLock.Unlock()

	ws.registry.Attach(roomId)
}

func (ws *WatchServer) detachClient(c *Client) {
	ws.roomsLock.Lock()
	roomId := c.room()
	if roomId == "" {
		ws.roomsLock.Unlock()
		return
	}

	if clients, ok := ws.roomClients[roomId]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(ws.roomClients, roomId)
		}
	}
	c.setRoom("")
	ws.roomsLock.Unlock()

	ws.registry.Detach(roomId)
}

func (ws *WatchServer) dropRoom(roomId string) {
	ws.roomsLock.Lock()
	clients := ws.roomClients[roomId]
	delete(ws.roomClients, roomId)
	for c := range clients {
		c.setRoom("")
	}
	ws.roomsLock.Unlock()
}

// handleDisconnect treats a dropped connection as an implicit leave.
func (ws *WatchServer) handleDisconnect(c *Client) {
	roomId := c.room()
	if roomId != "" {
		ws.detachClient(c)
		if err := ws.registry.LeaveRoom(roomId, c.user.Id); err != nil {
			ws.log.Printf("implicit leave for user %d: %v", c.user.Id, err)
		}
	}

	ws.DeregisterClient(c)
}

func (ws *WatchServer) Shutdown(ctx context.Context) error {
	ws.log.Println("shutting down watch server")

	ws.clientsLock.Lock()
	for c := range ws.clients {
		c.stopClient()
	}
	ws.clientsLock.Unlock()

	ws.registry.Shutdown()

	close(ws.stop)

	select {
	case <-ws.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("watch server shutdown: %w", ctx.Err())
	}
}

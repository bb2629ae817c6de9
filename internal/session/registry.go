package session

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/teris-io/shortid"
	"github.com/watchparty/server/internal/stats"
	"github.com/watchparty/server/internal/types"
	"golang.org/x/crypto/bcrypt"
)

// DefaultIdleTimeout is how long a room with no connected clients is
// kept before being torn down.
const DefaultIdleTimeout = 2 * time.Minute

// Registry is the session directory: every live room keyed by id, plus
// the user to room index backing the single-current-room rule.
type Registry struct {
	log   *log.Logger
	sink  EventSink
	stats stats.StatsProvider

	idGen       *shortid.Shortid
	idleTimeout time.Duration

	mu         sync.RWMutex
	rooms      map[string]*RoomSession
	userRooms  map[int]string
	idleTimers map[string]*time.Timer
}

func NewRegistry(logger *log.Logger, sink EventSink, sp stats.StatsProvider, idleTimeout time.Duration) (*Registry, error) {
	idGen, err := shortid.New(1, shortid.DefaultABC, uint64(time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}

	if sink == nil {
		sink = nopSink{}
	}
	if sp == nil {
		sp = nopStats{}
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	return &Registry{
		log:         logger,
		sink:        sink,
		stats:       sp,
		idGen:       idGen,
		idleTimeout: idleTimeout,
		rooms:       make(map[string]*RoomSession),
		userRooms:   make(map[int]string),
		idleTimers:  make(map[string]*time.Timer),
	}, nil
}

// CreateRoom allocates a room with a fresh id and the host as its sole
// participant. Private rooms store a bcrypt hash of the access code.
func (reg *Registry) CreateRoom(host Identity, movieId, name string, private bool, password string) (*types.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrValidation("room name cannot be empty")
	}
	if movieId == "" {
		return nil, ErrValidation("movie id cannot be empty")
	}
	if private && password == "" {
		return nil, ErrValidation("private rooms require a password")
	}

	var pwdHash []byte
	if private {
		var err error
		pwdHash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}

	id, err := reg.idGen.Generate()
	if err != nil {
		return nil, err
	}

	room := &RoomSession{
		id:           id,
		name:         name,
		hostId:       host.UserId,
		movieId:      movieId,
		isPrivate:    private,
		passwordHash: pwdHash,
		createdAt:    Now(),
		playback:     types.PlaybackState{},
		sink:         reg.sink,
		stats:        reg.stats,
		log:          reg.log,
	}
	room.participants = []types.Participant{{
		UserId:    host.UserId,
		Username:  host.Username,
		AvatarUrl: host.AvatarUrl,
		JoinedAt:  room.createdAt,
		IsHost:    true,
	}}

	reg.mu.Lock()
	// creating a room implicitly leaves the previous one
	prev, inRoom := reg.userRooms[host.UserId]
	reg.rooms[id] = room
	reg.userRooms[host.UserId] = id
	reg.mu.Unlock()

	if inRoom {
		reg.leaveRoom(prev, host.UserId, false)
	}

	reg.stats.Incr(stats.MetricActiveRooms)
	reg.stats.Incr(stats.MetricParticipants)

	// the room starts with no connections; reap it if nobody shows up
	reg.resetIdleTimer(id)

	reg.log.Printf("created room %q for host %d (movie %q)", id, host.UserId, movieId)

	return room.Snapshot(), nil
}

// Room returns the live session for roomId.
func (reg *Registry) Room(roomId string) (*RoomSession, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[roomId]
	if !ok {
		return nil, ErrRoomNotFound(roomId)
	}

	return room, nil
}

// RoomsFor returns every live room as visible to userId, with private
// state redacted from rooms userId is not a member of.
func (reg *Registry) RoomsFor(userId int) []*types.Room {
	reg.mu.RLock()
	sessions := make([]*RoomSession, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		sessions = append(sessions, room)
	}
	reg.mu.RUnlock()

	rooms := make([]*types.Room, len(sessions))
	for i, room := range sessions {
		rooms[i] = room.SnapshotFor(userId)
	}

	return rooms
}

// RoomFor reports which room userId is currently part of.
func (reg *Registry) RoomFor(userId int) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	id, ok := reg.userRooms[userId]
	return id, ok
}

// JoinRoom adds user to roomId, moving them out of their previous room
// if they were in one. A failed join never mutates membership.
func (reg *Registry) JoinRoom(roomId string, user Identity, password string) (*types.Room, error) {
	// the previous-room read and the index write must happen under one
	// lock, or two concurrent joins by the same user can both land
	reg.mu.Lock()
	room, ok := reg.rooms[roomId]
	if !ok {
		reg.mu.Unlock()
		return nil, ErrRoomNotFound(roomId)
	}

	prev, inRoom := reg.userRooms[user.UserId]
	if inRoom && prev == roomId {
		reg.mu.Unlock()
		// idempotent re-join
		return room.join(user, password)
	}

	snapshot, err := room.join(user, password)
	if err != nil {
		reg.mu.Unlock()
		return nil, err
	}

	reg.userRooms[user.UserId] = roomId
	reg.mu.Unlock()

	if inRoom {
		reg.leaveRoom(prev, user.UserId, false)
	}

	reg.stats.Incr(stats.MetricParticipants)

	return snapshot, nil
}

// LeaveRoom removes userId from roomId. It is a no-op if the room is
// gone or the user is not a member. When the host leaves, the room is
// ended for everyone; host transfer is deliberately not modeled.
func (reg *Registry) LeaveRoom(roomId string, userId int) error {
	reg.leaveRoom(roomId, userId, true)
	return nil
}

func (reg *Registry) leaveRoom(roomId string, userId int, clearIndex bool) {
	reg.mu.RLock()
	room, ok := reg.rooms[roomId]
	reg.mu.RUnlock()

	if !ok {
		return
	}

	found, hostLeft := room.leave(userId)

	if clearIndex || found {
		reg.mu.Lock()
		if reg.userRooms[userId] == roomId {
			delete(reg.userRooms, userId)
		}
		reg.mu.Unlock()
	}

	if found {
		reg.stats.Decr(stats.MetricParticipants)
	}

	if hostLeft {
		reg.log.Printf("host %d left room %q, ending it", userId, roomId)
		reg.unload(roomId)
	}
}

// EndRoom removes roomId from the directory. Host only.
func (reg *Registry) EndRoom(roomId string, callerId int) error {
	reg.mu.RLock()
	room, ok := reg.rooms[roomId]
	reg.mu.RUnlock()

	if !ok {
		return ErrRoomNotFound(roomId)
	}

	if room.HostId() != callerId {
		return ErrPermissionDenied("only the host may end the room")
	}

	reg.unload(roomId)
	return nil
}

// KickParticipant removes targetId from roomId on behalf of callerId
// and clears the target's current-room index entry.
func (reg *Registry) KickParticipant(roomId string, callerId, targetId int) error {
	room, err := reg.Room(roomId)
	if err != nil {
		return err
	}

	if err := room.KickParticipant(callerId, targetId); err != nil {
		return err
	}

	reg.mu.Lock()
	if reg.userRooms[targetId] == roomId {
		delete(reg.userRooms, targetId)
	}
	reg.mu.Unlock()

	reg.stats.Decr(stats.MetricParticipants)

	return nil
}

// Attach records a connected client for roomId and cancels any pending
// idle teardown.
func (reg *Registry) Attach(roomId string) {
	reg.mu.Lock()
	room, ok := reg.rooms[roomId]
	if ok {
		if t, exists := reg.idleTimers[roomId]; exists {
			t.Stop()
			delete(reg.idleTimers, roomId)
		}
	}
	reg.mu.Unlock()

	if ok {
		room.attach()
	}
}

// Detach records a disconnected client. The last detach arms the idle
// timer; the room is torn down if nobody reconnects in time.
func (reg *Registry) Detach(roomId string) {
	reg.mu.RLock()
	room, ok := reg.rooms[roomId]
	reg.mu.RUnlock()

	if !ok {
		return
	}

	if room.detach() == 0 {
		reg.resetIdleTimer(roomId)
	}
}

func (reg *Registry) resetIdleTimer(roomId string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[roomId]; !ok {
		return
	}

	if t, exists := reg.idleTimers[roomId]; exists {
		t.Stop()
	}

	reg.idleTimers[roomId] = time.AfterFunc(reg.idleTimeout, func() {
		reg.handleIdleTimeout(roomId)
	})
}

func (reg *Registry) handleIdleTimeout(roomId string) {
	reg.mu.RLock()
	room, ok := reg.rooms[roomId]
	reg.mu.RUnlock()

	if !ok {
		return
	}

	room.mu.Lock()
	idle := room.attachments == 0
	room.mu.Unlock()

	if !idle {
		return
	}

	reg.log.Printf("room %q idle for %s, unloading", roomId, reg.idleTimeout)
	reg.unload(roomId)
}

// unload ends the room, clears every member's index entry and drops it
// from the directory.
func (reg *Registry) unload(roomId string) {
	reg.mu.Lock()
	room, ok := reg.rooms[roomId]
	if !ok {
		reg.mu.Unlock()
		return
	}

	delete(reg.rooms, roomId)
	if t, exists := reg.idleTimers[roomId]; exists {
		t.Stop()
		delete(reg.idleTimers, roomId)
	}

	var members int
	for _, p := range room.Snapshot().Participants {
		if reg.userRooms[p.UserId] == roomId {
			delete(reg.userRooms, p.UserId)
		}
		members++
	}
	reg.mu.Unlock()

	room.end()

	reg.stats.Decr(stats.MetricActiveRooms)
	for i := 0; i < members; i++ {
		reg.stats.Decr(stats.MetricParticipants)
	}

	reg.log.Printf("room %q removed from directory", roomId)
}

type nopStats struct{}

func (nopStats) Incr(string)           {}
func (nopStats) Decr(string)           {}
func (nopStats) RegisterMetric(string) {}
func (nopStats) Run()                  {}

// Shutdown tears down every live room.
func (reg *Registry) Shutdown() {
	reg.mu.RLock()
	ids := make([]string, 0, len(reg.rooms))
	for id := range reg.rooms {
		ids = append(ids, id)
	}
	reg.mu.RUnlock()

	for _, id := range ids {
		reg.unload(id)
	}
}

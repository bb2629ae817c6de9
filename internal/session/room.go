package session

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/watchparty/server/internal/stats"
	"github.com/watchparty/server/internal/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	// chatLogLimit caps the in-memory chat log per room. Older entries
	// are dropped from the live snapshot once the cap is reached.
	chatLogLimit = 512
	// reactionLogLimit caps the reaction ring. Consumers only render a
	// few seconds of reactions, so the ring can stay small.
	reactionLogLimit = 256
)

// Identity is the caller's stamp for participant, message and reaction
// records. It comes from the identity service and is read-only here.
type Identity struct {
	UserId    int
	Username  string
	AvatarUrl string
}

// RoomSession holds the authoritative state of a single watch party
// room. All mutating operations are serialized on mu, emit at most one
// event while holding it, and return typed SessionErrors for routine
// failures.
type RoomSession struct {
	id           string
	name         string
	hostId       int
	movieId      string
	isPrivate    bool
	passwordHash []byte
	createdAt    time.Time

	mu           sync.Mutex
	participants []types.Participant
	playback     types.PlaybackState
	messages     []types.ChatMessage
	reactions    []types.Reaction
	ended        bool

	// attachments counts connected clients, maintained by the
	// transport via the registry. Guarded by mu.
	attachments int

	sink  EventSink
	stats stats.StatsProvider
	log   *log.Logger
}

func (r *RoomSession) Id() string {
	return r.id
}

func (r *RoomSession) HostId() int {
	return r.hostId
}

func (r *RoomSession) MovieId() string {
	return r.movieId
}

// Snapshot returns a copy of the room state safe to hand to callers.
func (r *RoomSession) Snapshot() *types.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

// SnapshotFor returns the room as visible to userId. Members see the
// full state; non-members get the listing view with chat and reactions
// withheld and, for private rooms, the roster too. The full snapshot
// travels only in the response to a successful join.
func (r *RoomSession) SnapshotFor(userId int) *types.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.snapshotLocked()
	if _, ok := r.participantLocked(userId); ok {
		return room
	}

	room.Messages = nil
	room.Reactions = nil
	if r.isPrivate {
		room.Participants = nil
	}

	return room
}

func (r *RoomSession) snapshotLocked() *types.Room {
	room := &types.Room{
		Id:           r.id,
		Name:         r.name,
		HostId:       r.hostId,
		MovieId:      r.movieId,
		IsPrivate:    r.isPrivate,
		Playback:     r.playback,
		Participants: make([]types.Participant, len(r.participants)),
		Messages:     make([]types.ChatMessage, len(r.messages)),
		Reactions:    make([]types.Reaction, len(r.reactions)),
		CreatedAt:    r.createdAt,
	}
	copy(room.Participants, r.participants)
	copy(room.Messages, r.messages)
	copy(room.Reactions, r.reactions)

	return room
}

func (r *RoomSession) participantLocked(userId int) (int, bool) {
	for i, p := range r.participants {
		if p.UserId == userId {
			return i, true
		}
	}

	return -1, false
}

// join adds user to the room. A second join by an existing member is a
// no-op success. Failed joins never mutate the participant list.
func (r *RoomSession) join(user Identity, password string) (*types.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return nil, ErrRoomNotFound(r.id)
	}

	if _, ok := r.participantLocked(user.UserId); ok {
		return r.snapshotLocked(), nil
	}

	if r.isPrivate && r.hostId != user.UserId {
		if err := bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)); err != nil {
			return nil, ErrInvalidCredentials()
		}
	}

	p := types.Participant{
		UserId:    user.UserId,
		Username:  user.Username,
		AvatarUrl: user.AvatarUrl,
		JoinedAt:  Now(),
		IsHost:    user.UserId == r.hostId,
	}
	r.participants = append(r.participants, p)

	r.emitLocked(&Event{ParticipantJoined: &p})
	r.systemMessageLocked(fmt.Sprintf("%s joined the room", user.Username))

	return r.snapshotLocked(), nil
}

// leave removes userId from the room. It reports whether the
// participant was found and whether the departing user was the host;
// the registry ends the room when the host leaves.
func (r *RoomSession) leave(userId int) (found, hostLeft bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.participantLocked(userId)
	if !ok {
		return false, false
	}

	p := r.participants[i]
	r.participants = append(r.participants[:i], r.participants[i+1:]...)

	r.emitLocked(&Event{ParticipantLeft: &ParticipantLeft{UserId: userId}})
	r.systemMessageLocked(fmt.Sprintf("%s left the room", p.Username))

	return true, p.IsHost
}

// UpdatePlayback overwrites the shared playback state. Host only; the
// transport cannot be trusted to gate this client-side.
func (r *RoomSession) UpdatePlayback(callerId int, position float64, playing bool) (types.PlaybackState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return types.PlaybackState{}, ErrRoomNotFound(r.id)
	}
	if callerId != r.hostId {
		return types.PlaybackState{}, ErrPermissionDenied("only the host may control playback")
	}
	if position < 0 {
		return types.PlaybackState{}, ErrValidation("playback position cannot be negative")
	}

	r.playback.Position = position
	r.playback.IsPlaying = playing
	r.playback.Seq++

	state := r.playback
	r.emitLocked(&Event{PlaybackUpdated: &state})
	r.stats.Incr(stats.MetricPlaybackUpdates)

	return state, nil
}

// SendMessage appends a chat message authored by callerId. The sender
// must still be a member at the time the room applies the message.
func (r *RoomSession) SendMessage(callerId int, content string) (types.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return types.ChatMessage{}, ErrRoomNotFound(r.id)
	}

	i, ok := r.participantLocked(callerId)
	if !ok {
		return types.ChatMessage{}, ErrParticipantNotFound(callerId)
	}
	if strings.TrimSpace(content) == "" {
		return types.ChatMessage{}, ErrValidation("message content cannot be empty")
	}

	p := r.participants[i]
	msg := types.ChatMessage{
		Id:        uuid.NewString(),
		UserId:    p.UserId,
		Username:  p.Username,
		AvatarUrl: p.AvatarUrl,
		Content:   content,
		Timestamp: Now(),
	}
	r.appendMessageLocked(msg)
	r.stats.Incr(stats.MetricMessagesSent)

	return msg, nil
}

// AddReaction appends an ephemeral emoji reaction at a normalized
// position on the video frame.
func (r *RoomSession) AddReaction(callerId int, emoji string, x, y float64) (types.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return types.Reaction{}, ErrRoomNotFound(r.id)
	}

	if _, ok := r.participantLocked(callerId); !ok {
		return types.Reaction{}, ErrParticipantNotFound(callerId)
	}
	if emoji == "" {
		return types.Reaction{}, ErrValidation("emoji cannot be empty")
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return types.Reaction{}, ErrValidation("reaction position must be within [0,1]")
	}

	reaction := types.Reaction{
		Id:        uuid.NewString(),
		UserId:    callerId,
		Emoji:     emoji,
		Timestamp: Now(),
		X:         x,
		Y:         y,
	}

	r.reactions = append(r.reactions, reaction)
	if len(r.reactions) > reactionLogLimit {
		r.reactions = r.reactions[len(r.reactions)-reactionLogLimit:]
	}

	r.emitLocked(&Event{Reaction: &reaction})
	r.stats.Incr(stats.MetricReactionsSent)

	return reaction, nil
}

// ToggleMute flips the target's muted flag. Permitted for the host or
// for the target toggling themselves.
func (r *RoomSession) ToggleMute(callerId, targetId int) error {
	return r.toggleFlag(callerId, targetId, func(p *types.Participant) {
		p.IsMuted = !p.IsMuted
	})
}

// ToggleVideo flips the target's video-enabled flag under the same
// permission rule as ToggleMute.
func (r *RoomSession) ToggleVideo(callerId, targetId int) error {
	return r.toggleFlag(callerId, targetId, func(p *types.Participant) {
		p.IsVideoEnabled = !p.IsVideoEnabled
	})
}

func (r *RoomSession) toggleFlag(callerId, targetId int, flip func(*types.Participant)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return ErrRoomNotFound(r.id)
	}
	if callerId != r.hostId && callerId != targetId {
		return ErrPermissionDenied("only the host may update another participant")
	}

	i, ok := r.participantLocked(targetId)
	if !ok {
		return ErrParticipantNotFound(targetId)
	}

	flip(&r.participants[i])

	updated := r.participants[i]
	r.emitLocked(&Event{ParticipantUpdated: &updated})

	return nil
}

// KickParticipant removes targetId from the room. Host only, and the
// host cannot kick itself; leaving is a separate operation.
func (r *RoomSession) KickParticipant(callerId, targetId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return ErrRoomNotFound(r.id)
	}
	if callerId != r.hostId {
		return ErrPermissionDenied("only the host may remove a participant")
	}
	if targetId == r.hostId {
		return ErrPermissionDenied("the host cannot kick itself")
	}

	i, ok := r.participantLocked(targetId)
	if !ok {
		return ErrParticipantNotFound(targetId)
	}

	p := r.participants[i]
	r.participants = append(r.participants[:i], r.participants[i+1:]...)

	r.emitLocked(&Event{ParticipantLeft: &ParticipantLeft{UserId: targetId, Kicked: true}})
	r.systemMessageLocked(fmt.Sprintf("%s was removed from the room", p.Username))

	return nil
}

func (r *RoomSession) systemMessageLocked(content string) {
	msg := types.ChatMessage{
		Id:        uuid.NewString(),
		Content:   content,
		Timestamp: Now(),
		IsSystem:  true,
	}
	r.appendMessageLocked(msg)
}

func (r *RoomSession) appendMessageLocked(msg types.ChatMessage) {
	r.messages = append(r.messages, msg)
	if len(r.messages) > chatLogLimit {
		r.messages = r.messages[len(r.messages)-chatLogLimit:]
	}

	r.emitLocked(&Event{Message: &msg})
}

func (r *RoomSession) end() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return
	}

	r.ended = true
	r.participants = nil
	r.emitLocked(&Event{RoomEnded: &RoomEnded{RoomId: r.id}})
}

func (r *RoomSession) attach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments++
}

func (r *RoomSession) detach() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.attachments > 0 {
		r.attachments--
	}

	return r.attachments
}

func (r *RoomSession) emitLocked(ev *Event) {
	ev.RoomId = r.id
	ev.Timestamp = Now()
	r.sink.Publish(ev)
}

package session

import (
	"time"

	"github.com/watchparty/server/internal/types"
)

// Event is emitted to the sink on every successful mutation, in the
// order the room applied them. Exactly one of the pointer fields is set.
type Event struct {
	RoomId    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`

	ParticipantJoined  *types.Participant   `json:"participant_joined,omitempty"`
	ParticipantLeft    *ParticipantLeft     `json:"participant_left,omitempty"`
	ParticipantUpdated *types.Participant   `json:"participant_updated,omitempty"`
	PlaybackUpdated    *types.PlaybackState `json:"playback_updated,omitempty"`
	Message            *types.ChatMessage   `json:"message,omitempty"`
	Reaction           *types.Reaction      `json:"reaction,omitempty"`
	RoomEnded          *RoomEnded           `json:"room_ended,omitempty"`
}

type ParticipantLeft struct {
	UserId int  `json:"user_id"`
	Kicked bool `json:"kicked,omitempty"`
}

type RoomEnded struct {
	RoomId string `json:"room_id"`
}

// EventSink receives room events for delivery to connected members.
// Implementations must not block.
type EventSink interface {
	Publish(ev *Event)
}

type nopSink struct{}

func (nopSink) Publish(*Event) {}

// Now returns the timestamp used for all session records.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

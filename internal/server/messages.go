package server

import (
	"net/http"
	"time"

	"github.com/watchparty/server/internal/session"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Join     *Join     `json:"join,omitempty"`
	Leave    *Leave    `json:"leave,omitempty"`
	Publish  *Publish  `json:"publish,omitempty"`
	React    *React    `json:"react,omitempty"`
	Playback *Playback `json:"playback,omitempty"`
	Moderate *Moderate `json:"moderate,omitempty"`
	UserId   int       `json:"-"`
}

type Join struct {
	RoomId   string `json:"room_id"`
	Password string `json:"password,omitempty"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

type Publish struct {
	RoomId  string `json:"room_id"`
	Content string `json:"content"`
}

type React struct {
	RoomId string  `json:"room_id"`
	Emoji  string  `json:"emoji"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type Playback struct {
	RoomId    string  `json:"room_id"`
	Position  float64 `json:"position"`
	IsPlaying bool    `json:"is_playing"`
}

// Moderate carries host moderation actions and self flag toggles.
const (
	ModerateKick  = "kick"
	ModerateMute  = "mute"
	ModerateVideo = "video"
)

type Moderate struct {
	RoomId string `json:"room_id"`
	Action string `json:"action"`
	UserId int    `json:"user_id"`
}

type ServerMessage struct {
	BaseMessage
	Response *Response      `json:"response,omitempty"`
	Event    *session.Event `json:"event,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: session.Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: session.Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func errResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: session.Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return errResponse(id, http.StatusNotFound, "room not found")
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := errResponse(0, http.StatusBadRequest, "invalid message format")
	if id > 0 {
		msg.Id = id
	}
	return msg
}

// ErrSession maps a session failure onto a response envelope.
func ErrSession(id int, err error) *ServerMessage {
	var code int
	switch session.Kind(err) {
	case session.KindRoomNotFound, session.KindParticipantNotFound:
		code = http.StatusNotFound
	case session.KindInvalidCredentials:
		code = http.StatusUnauthorized
	case session.KindPermissionDenied:
		code = http.StatusForbidden
	case session.KindValidation:
		code = http.StatusBadRequest
	default:
		return ErrInternalError(id)
	}

	return errResponse(id, code, err.Error())
}

package session

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindRoomNotFound        ErrorKind = "room_not_found"
	KindInvalidCredentials  ErrorKind = "invalid_credentials"
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindParticipantNotFound ErrorKind = "participant_not_found"
	KindValidation          ErrorKind = "validation_error"
)

// SessionError is the typed failure returned by every core operation.
// Routine outcomes (absent room, bad password, denied permission) are
// values the caller branches on, never panics.
type SessionError struct {
	Kind    ErrorKind
	Message string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func ErrRoomNotFound(roomId string) *SessionError {
	return &SessionError{
		Kind:    KindRoomNotFound,
		Message: fmt.Sprintf("no room with id %q", roomId),
	}
}

func ErrInvalidCredentials() *SessionError {
	return &SessionError{
		Kind:    KindInvalidCredentials,
		Message: "invalid room password",
	}
}

func ErrPermissionDenied(msg string) *SessionError {
	return &SessionError{
		Kind:    KindPermissionDenied,
		Message: msg,
	}
}

func ErrParticipantNotFound(userId int) *SessionError {
	return &SessionError{
		Kind:    KindParticipantNotFound,
		Message: fmt.Sprintf("user %d is not a participant", userId),
	}
}

func ErrValidation(msg string) *SessionError {
	return &SessionError{
		Kind:    KindValidation,
		Message: msg,
	}
}

// Kind extracts the error kind from err, or an empty kind
// if err is not a SessionError.
func Kind(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}

	return ""
}

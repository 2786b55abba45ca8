// internal/lobby/errors.go
package lobby

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable failure class the transport maps to a response.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindPlayerNotFound   Kind = "PLAYER_NOT_FOUND"
	KindInvalidState     Kind = "INVALID_STATE"
	KindValidation       Kind = "VALIDATION_ERROR"
	KindCapacityExceeded Kind = "CAPACITY_EXCEEDED"
	KindPlayerInactive   Kind = "PLAYER_INACTIVE"
)

// Error is a terminal, caller-visible engine failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind so errors.Is(err, ErrNotFound) works for any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "lobby not found"}
	ErrPlayerNotFound   = &Error{Kind: KindPlayerNotFound, Message: "player not in this lobby"}
	ErrInvalidState     = &Error{Kind: KindInvalidState, Message: "operation not allowed in current lobby state"}
	ErrValidation       = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded, Message: "lobby is full"}
	ErrPlayerInactive   = &Error{Kind: KindPlayerInactive, Message: "player is no longer active in this game"}
)

// Internal outcomes the manager resolves before anything reaches a caller.
var (
	errAdmissionClosed = errors.New("lobby admission closed")
	errPlayersNotReady = errors.New("players without a grid")
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

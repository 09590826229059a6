package game

import (
	"errors"
	"fmt"
)

var (
	ErrJoinRejected    = errors.New("join rejected")
	ErrRequestRejected = errors.New("request rejected")
	ErrTimeout         = errors.New("request timed out")
	ErrAlreadyJoined   = errors.New("already joined a game")
	ErrNotJoined       = errors.New("not joined to a game")
	ErrInvalidGuess    = errors.New("invalid guess")
	ErrInvalidRole     = errors.New("invalid role")
)

// RejectedError is a request the server answered with status "error".
type RejectedError struct {
	Op     string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

func (e *RejectedError) Unwrap() error {
	if e.Op == opJoin {
		return ErrJoinRejected
	}
	return ErrRequestRejected
}

package command

import (
	"errors"
	"net/http"
)

// Error is a request that cannot be served. Status is the logical status
// reported inside the response body.
type Error struct {
	Status int
	Msg    string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrEmptyRequest    = &Error{Status: http.StatusBadRequest, Msg: "Empty request"}
	ErrUnknownEndpoint = &Error{Status: http.StatusNotFound, Msg: "Invalid endpoint"}
	ErrInvalidUnit     = &Error{Status: http.StatusBadRequest, Msg: "Invalid unit. Use 'f' for Fahrenheit or 'c' for Celsius."}

	// ErrQueueClosed is returned by Submit once the loop has stopped.
	ErrQueueClosed = errors.New("command queue closed")
)

// malformed reports a bad integer argument with the conversion message.
func malformed(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Msg: err.Error()}
}

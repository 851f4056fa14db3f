package delivery

import "errors"

var (
	// ErrMessageInFlight is returned when an ack-requiring message that already
	// carries a request id is sent again
	ErrMessageInFlight = errors.New("message already in flight")
	// ErrIDSpaceExhausted is returned when no free request id was found
	ErrIDSpaceExhausted = errors.New("no free request id")
	// ErrLayerClosed is returned when a closed layer is used
	ErrLayerClosed = errors.New("delivery layer closed")
	// ErrAlreadyStarted is returned by a second call to Start
	ErrAlreadyStarted = errors.New("delivery layer already started")
)

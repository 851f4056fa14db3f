package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface of the node's local key–value slice.
// The store is flat: it knows nothing about ring positions or key ownership.
type IStore interface {
	// Get returns the value for a key. The boolean indicates whether the key was found.
	Get(key string) (value []byte, loaded bool)
	// Put inserts a key–value pair. Existing keys are never overwritten,
	// an *Error with code RetCAlreadyExists is returned instead.
	Put(key string, value []byte) (err error)
	// Remove deletes a key and returns the value it held, if any.
	Remove(key string) (previous []byte, loaded bool)
	// Len returns the number of keys held.
	Len() int
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// IsAlreadyExists reports whether err is a store error with code RetCAlreadyExists.
func IsAlreadyExists(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == RetCAlreadyExists
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCAlreadyExists                   // 2: Put on a key that is already present.
	RetCInvalidOperation                // 3: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCAlreadyExists:
		return "AlreadyExists"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}

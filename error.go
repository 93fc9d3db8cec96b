package quickcan

import (
	"errors"
	"fmt"
)

// pumpStop marks an error after which Pump must not be called again.
type pumpStop struct {
	err error
}

func (e *pumpStop) Error() string { return e.err.Error() }

func (e *pumpStop) Unwrap() error { return e.err }

// Unrecoverable marks err as fatal for a pump loop. A nil err stays nil.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &pumpStop{err: err}
}

// IsRecoverable reports whether a pump loop may keep calling Pump after err.
func IsRecoverable(err error) bool {
	var ps *pumpStop
	return !errors.As(err, &ps)
}

var (
	ErrNilTransport   = errors.New("transport is nil")
	ErrClosed         = errors.New("driver closed")
	ErrConcurrentPump = errors.New("pump already running on this driver")
	ErrHandlerOwned   = errors.New("driver handler is owned by a bus")
	ErrTransportRead  = errors.New("transport read failed")
	ErrTransportWrite = errors.New("transport write failed")

	ErrBusClosed    = errors.New("bus shut down")
	ErrRecvTimeout  = errors.New("timeout waiting for message")
	ErrDroppedFrame = errors.New("bus receive queue full")
	ErrNack         = errors.New("adapter answered NACK")

	ErrFirmwareTooOld = errors.New("adapter firmware too old")
)

// TransportError is returned for I/O failures on the transport. It matches
// ErrTransportRead or ErrTransportWrite with errors.Is depending on Op.
type TransportError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTransportRead:
		return e.Op == opRead
	case ErrTransportWrite:
		return e.Op == opWrite
	}
	return false
}

const (
	opRead  = "read"
	opWrite = "write"
)

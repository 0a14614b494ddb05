package serial

import "errors"

// Error kinds. Errors returned by this package wrap one of these; match them
// with errors.Is.
var (
	// ErrConfiguration reports an invalid parameter. Fatal to starting a bridge.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrConnection reports that a port could not be opened or its control
	// lines could not be set. Fatal to starting a bridge.
	ErrConnection = errors.New("connection failed")

	// ErrIO reports a read or write failure on an open port. A running bridge
	// logs it and keeps going.
	ErrIO = errors.New("serial i/o failed")

	// ErrLogging reports that the traffic log could not be written. Traffic is
	// still relayed.
	ErrLogging = errors.New("traffic log write failed")

	// ErrClosed reports use of a port after Close.
	ErrClosed = errors.New("port closed")

	// ErrNotConnected reports Start before a successful Connect.
	ErrNotConnected = errors.New("bridge not connected")

	// ErrInvalidState reports a lifecycle call the current state does not allow.
	ErrInvalidState = errors.New("invalid bridge state")
)

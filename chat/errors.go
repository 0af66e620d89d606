package chat

import "errors"

var (
	// ErrBusy is returned by Submit and Run when a script is already
	// executing on the engine.
	//
	// Only one script runs at a time. Submissions are rejected, not
	// queued; callers that need sequencing should wait for the active
	// script's completion callback before submitting again.
	ErrBusy = errors.New("script already running")

	// ErrInvalidScript is returned when a submitted script is malformed,
	// for example a response or abort match with an empty pattern, or a
	// partial match placed in the abort table.
	ErrInvalidScript = errors.New("invalid script")

	// ErrNotAttached is returned when an operation requires an attached
	// transport and the engine is detached.
	ErrNotAttached = errors.New("no transport attached")

	// ErrAlreadyAttached is returned by Attach when the engine is already
	// bound to a transport. Call Release first to rebind.
	ErrAlreadyAttached = errors.New("transport already attached")

	// ErrAlreadyClosed is returned when an operation is attempted on an
	// engine that has been closed. A closed engine cannot be reused.
	ErrAlreadyClosed = errors.New("engine already closed")

	// ErrNoDialer is returned when a dialer-based helper is invoked
	// without a Dialer configured.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrOverflow indicates that an incoming line exceeded the receive
	// buffer capacity before a delimiter was seen. The line is discarded;
	// subsequent lines are unaffected.
	ErrOverflow = errors.New("receive buffer overflow")
)

package desktop

import "errors"

var (
	// ErrNoDisplay is returned by Run on Linux when no display server is reachable.
	ErrNoDisplay = errors.New("no display detected")

	// ErrAlreadyRunning is returned by Run when another instance owns the window.
	ErrAlreadyRunning = errors.New("another instance is already running")
)

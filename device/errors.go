// Package device provides the per-syringe/base session API layered on top
// of engine.Session: connect/disconnect, the rate/volume/drug readers,
// event subscription, and module discovery.
package device

import "fmt"

// CommandError wraps a protocol-level error (link or application) returned
// by the device in reply to a specific command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device: command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CommunicationError wraps a transport-level failure (timeout exhausted,
// port closed, context cancelled) that is not a protocol error code.
type CommunicationError struct {
	Op  string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("device: %s: %v", e.Op, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

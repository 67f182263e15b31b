// Package task defines the contracts shared by every driver's task and client halves.
package task

import "errors"

// ErrNotFound is returned when a client consumes from an empty message slot.
var ErrNotFound = errors.New("task: no message pending")

// Driver is the task half of a driver. The scheduler calls Advance whenever
// HasPendingEvent is true; Advance must drain the raw event before returning.
type Driver interface {
	HasPendingEvent() bool
	Advance()
}

// Stateful is a driver whose operations stay active until a terminal event arrives,
// including after a cancel request.
type Stateful interface {
	Driver
	IsOperationActive() bool
}

// Client is the application-facing half of a driver.
type Client interface {
	// HasMessage reports whether any client-visible message is waiting.
	HasMessage() bool
	// Reap discards every waiting message.
	Reap()
}

// AnyPending reports whether any driver holds an unprocessed raw event.
func AnyPending(drivers ...Driver) bool {
	for _, d := range drivers {
		if d != nil && d.HasPendingEvent() {
			return true
		}
	}
	return false
}

// AnyMessage reports whether any client holds a message.
func AnyMessage(clients ...Client) bool {
	for _, c := range clients {
		if c != nil && c.HasMessage() {
			return true
		}
	}
	return false
}

// ReapAll discards the waiting messages of every client.
func ReapAll(clients ...Client) {
	for _, c := range clients {
		if c != nil {
			c.Reap()
		}
	}
}

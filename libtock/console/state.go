// Package console drives the kernel's serial console.
//
// Reads and writes are independent operations on the same kernel driver, each with its
// own shared buffer, upcall mailbox, operation state and client slot. Both accept partial
// completion: the kernel may report progress in several upcalls. Reads can be aborted;
// an aborted read stays active until the kernel acknowledges the abort with one more upcall.
package console

import "fmt"

// BufferSize is the capacity of the shared read and write buffers.
const BufferSize = 64

// Phase is the tag of an operation State.
type Phase uint8

const (
	Idle Phase = iota
	Ongoing
	Aborting
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Ongoing:
		return "ongoing"
	case Aborting:
		return "aborting"
	default:
		return "unknown"
	}
}

// State tracks one operation. Pending+Completed equals the requested length
// while Phase is not Idle.
type State struct {
	Phase     Phase
	Pending   int
	Completed int
}

func (s State) String() string {
	if s.Phase == Idle {
		return "idle"
	}
	return fmt.Sprintf("%s(pending=%d completed=%d)", s.Phase, s.Pending, s.Completed)
}

// Active reports whether an operation is outstanding.
func (s State) Active() bool { return s.Phase != Idle }

// progress applies n transferred bytes, never moving more than is pending.
func (s *State) progress(n uint) {
	if n > uint(s.Pending) {
		n = uint(s.Pending)
	}
	s.Pending -= int(n)
	s.Completed += int(n)
}

// Result is the terminal outcome of an operation.
type Result struct {
	N   int
	Err error
}

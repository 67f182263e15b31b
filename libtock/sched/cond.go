package sched

import "tock/libtock/task"

// Cond reports whether a suspended task may resume.
type Cond func() bool

// Now resumes the task on the next step.
func Now() Cond { return func() bool { return true } }

// Await waits for one client's message.
func Await(c task.Client) Cond { return c.HasMessage }

// Any is select: it holds once at least one condition holds.
func Any(conds ...Cond) Cond {
	return func() bool {
		for _, c := range conds {
			if c() {
				return true
			}
		}
		return false
	}
}

// All is join: it holds once every condition holds.
func All(conds ...Cond) Cond {
	return func() bool {
		for _, c := range conds {
			if !c() {
				return false
			}
		}
		return true
	}
}

// Not inverts c.
func Not(c Cond) Cond { return func() bool { return !c() } }

// Idle holds once d has no operation in flight. A canceled operation is only idle
// after its terminal upcall has been processed.
func Idle(d task.Stateful) Cond {
	return func() bool { return !d.IsOperationActive() }
}

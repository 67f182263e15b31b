// Package sched runs driver task halves and one application task from a single
// blocking wait loop.
//
// Each Step advances every driver holding a raw upcall, resumes the application when the
// condition it is waiting on holds, and otherwise blocks in the kernel's Yield. Because
// drivers always run before the application in the same step, the application only ever
// observes client messages that have been fully converted.
package sched

import (
	"context"
	"fmt"

	"tock/hal"
	"tock/libtock/abi"
	"tock/libtock/task"
)

const maxDrivers = 8

// Task is an application task written as an explicit state machine.
type Task interface {
	// Advance runs the task to its next suspension point and returns the condition it
	// waits on. A nil Cond means the task has finished.
	Advance() Cond
}

type dropper interface {
	Dropped() uint32
}

type driverState struct {
	d       task.Driver
	dropped uint32
}

// Scheduler owns the drivers and the application task.
type Scheduler struct {
	k   abi.Kernel
	log hal.Logger

	drivers     [maxDrivers]driverState
	driverCount int
	clients     [maxDrivers]task.Client
	clientCount int

	app     Task
	wait    Cond
	started bool
	done    bool

	steps   uint64
	yields  uint64
	resumes uint64
}

// New returns a scheduler that blocks in k. log may be nil.
func New(k abi.Kernel, log hal.Logger) *Scheduler {
	return &Scheduler{k: k, log: log}
}

// AddDriver registers a driver task half. It reports false when the table is full.
func (s *Scheduler) AddDriver(d task.Driver) bool {
	if d == nil || s.driverCount >= maxDrivers {
		return false
	}
	s.drivers[s.driverCount] = driverState{d: d}
	s.driverCount++
	return true
}

// AddClient registers a client half for the aggregate message helpers.
func (s *Scheduler) AddClient(c task.Client) bool {
	if c == nil || s.clientCount >= maxDrivers {
		return false
	}
	s.clients[s.clientCount] = c
	s.clientCount++
	return true
}

// SetTask installs the application task. It is first resumed by the next Step.
func (s *Scheduler) SetTask(t Task) {
	s.app = t
	s.wait = nil
	s.started = false
	s.done = false
}

// Done reports whether the application task has finished.
func (s *Scheduler) Done() bool { return s.done }

// Stats returns loop counters for diagnostics.
func (s *Scheduler) Stats() (steps, yields, resumes uint64) {
	return s.steps, s.yields, s.resumes
}

// HasCallbackMessages reports whether any driver holds an unprocessed upcall.
func (s *Scheduler) HasCallbackMessages() bool {
	for i := 0; i < s.driverCount; i++ {
		if s.drivers[i].d.HasPendingEvent() {
			return true
		}
	}
	return false
}

// HasClientMessages reports whether any registered client holds a message.
func (s *Scheduler) HasClientMessages() bool {
	return task.AnyMessage(s.clients[:s.clientCount]...)
}

// ReapClientMessages discards every waiting client message.
func (s *Scheduler) ReapClientMessages() {
	task.ReapAll(s.clients[:s.clientCount]...)
}

// Step runs one loop iteration.
func (s *Scheduler) Step(ctx context.Context) error {
	s.steps++

	for i := 0; i < s.driverCount; i++ {
		ds := &s.drivers[i]
		if ds.d.HasPendingEvent() {
			ds.d.Advance()
		}
		s.checkDropped(i, ds)
	}

	if s.runnable() {
		s.resume()
	}

	// Never block while an upcall is undrained or the application could run.
	if s.HasCallbackMessages() || s.runnable() {
		return nil
	}
	if s.done {
		return nil
	}
	s.yields++
	return s.k.Yield(ctx)
}

// Run steps until the application task finishes, ctx is done, or Yield fails.
func (s *Scheduler) Run(ctx context.Context) error {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return fmt.Errorf("sched: %w", err)
		}
	}
	return nil
}

// runnable reports whether the application should be resumed now. Conditions are
// built from client predicates, so a true condition implies a converted message.
func (s *Scheduler) runnable() bool {
	if s.app == nil || s.done {
		return false
	}
	if !s.started {
		return true
	}
	return s.wait != nil && s.wait()
}

func (s *Scheduler) resume() {
	s.started = true
	s.resumes++
	s.wait = s.app.Advance()
	if s.wait == nil {
		s.done = true
		if s.log != nil {
			s.log.WriteLineString(fmt.Sprintf("sched: task finished after %d steps", s.steps))
		}
	}
}

func (s *Scheduler) checkDropped(i int, ds *driverState) {
	dr, ok := ds.d.(dropper)
	if !ok {
		return
	}
	n := dr.Dropped()
	if n == ds.dropped {
		return
	}
	if s.log != nil {
		s.log.WriteLineString(fmt.Sprintf("sched: driver %d dropped %d event(s)", i, n-ds.dropped))
	}
	ds.dropped = n
}

// Package button drives the kernel's push buttons.
//
// Press and release upcalls are staged into two independent client slots so an
// application can wait for one edge without consuming the other.
package button

import (
	"fmt"

	"tock/libtock/abi"
	"tock/libtock/task"
)

// State is a button level.
type State uint8

const (
	Released State = iota
	Pressed
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// Event reports one button edge.
type Event struct {
	Num   uint
	State State
}

// Driver is the task half of the button driver.
type Driver struct {
	k abi.Kernel

	events   task.Mailbox[abi.CallbackMessage]
	pressed  task.Mailbox[Event]
	released task.Mailbox[Event]
	dropped  uint32

	client Client
}

// New returns the button driver bound to k.
func New(k abi.Kernel) *Driver {
	d := &Driver{k: k}
	d.client.d = d
	return d
}

// Client returns the application-facing half.
func (d *Driver) Client() *Client { return &d.client }

func (d *Driver) upcall(arg0, arg1, arg2, userdata uint) {
	if d.events.Put(abi.CallbackMessage{Arg0: arg0, Arg1: arg1, Arg2: arg2, Userdata: userdata}) {
		d.dropped++
	}
}

// HasPendingEvent reports whether an upcall waits for Advance.
func (d *Driver) HasPendingEvent() bool { return d.events.Pending() }

// Advance classifies the pending upcall by level and stores it in the matching slot.
func (d *Driver) Advance() {
	cb, ok := d.events.Take()
	if !ok {
		return
	}
	num := cb.Arg0
	if cb.Arg1 == 0 {
		if d.released.Put(Event{Num: num, State: Released}) {
			d.dropped++
		}
		return
	}
	if d.pressed.Put(Event{Num: num, State: Pressed}) {
		d.dropped++
	}
}

// Dropped returns how many events were overwritten before being consumed.
func (d *Driver) Dropped() uint32 { return d.dropped }

// Subscribe registers the button upcall.
func (d *Driver) Subscribe() error {
	if err := d.k.Subscribe(abi.DriverButton, abi.ButtonSubCallback, d.upcall, 0); err != nil {
		return fmt.Errorf("button: subscribe: %w", err)
	}
	return nil
}

// Count returns the number of buttons on the board.
func (d *Driver) Count() (uint, error) {
	return d.k.Command(abi.DriverButton, abi.ButtonCmdCount, 0, 0)
}

// EnableInterrupt enables edge upcalls for button num.
func (d *Driver) EnableInterrupt(num uint) error {
	if _, err := d.k.Command(abi.DriverButton, abi.ButtonCmdEnableIRQ, num, 0); err != nil {
		return fmt.Errorf("button: enable %d: %w", num, err)
	}
	return nil
}

// DisableInterrupt stops edge upcalls for button num.
func (d *Driver) DisableInterrupt(num uint) error {
	if _, err := d.k.Command(abi.DriverButton, abi.ButtonCmdDisableIRQ, num, 0); err != nil {
		return fmt.Errorf("button: disable %d: %w", num, err)
	}
	return nil
}

// State reads the current level of button num. Command 2 doubles as disable_irq, so
// reading the state also disables the button's interrupt.
func (d *Driver) State(num uint) (State, error) {
	v, err := d.k.Command(abi.DriverButton, abi.ButtonCmdState, num, 0)
	if err != nil {
		return Released, fmt.Errorf("button: state %d: %w", num, err)
	}
	if v == 0 {
		return Released, nil
	}
	return Pressed, nil
}

// Client is the application half of the button driver.
type Client struct {
	d *Driver
}

// HasPressed reports whether a press event is waiting.
func (c *Client) HasPressed() bool { return c.d.pressed.Pending() }

// HasReleased reports whether a release event is waiting.
func (c *Client) HasReleased() bool { return c.d.released.Pending() }

// HasMessage reports whether either slot holds an event.
func (c *Client) HasMessage() bool { return c.HasPressed() || c.HasReleased() }

// ConsumePressed returns and clears the waiting press event.
func (c *Client) ConsumePressed() (Event, error) {
	ev, ok := c.d.pressed.Take()
	if !ok {
		return Event{}, task.ErrNotFound
	}
	return ev, nil
}

// ConsumeReleased returns and clears the waiting release event.
func (c *Client) ConsumeReleased() (Event, error) {
	ev, ok := c.d.released.Take()
	if !ok {
		return Event{}, task.ErrNotFound
	}
	return ev, nil
}

// Reap discards both slots.
func (c *Client) Reap() {
	c.d.pressed.Clear()
	c.d.released.Clear()
}

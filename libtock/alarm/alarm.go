// Package alarm drives the kernel's one-shot timer.
//
// The alarm keeps no operation state: every upcall becomes one client Event.
package alarm

import (
	"fmt"
	"time"

	"tock/libtock/abi"
	"tock/libtock/task"
)

// Event reports an expired alarm.
type Event struct {
	Now        uint
	Expiration uint
}

// Driver is the task half of the alarm.
type Driver struct {
	k abi.Kernel

	events  task.Mailbox[abi.CallbackMessage]
	msg     task.Mailbox[Event]
	dropped uint32

	client Client
}

// New returns the alarm driver bound to k.
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

// Advance converts the pending upcall into a client Event.
func (d *Driver) Advance() {
	cb, ok := d.events.Take()
	if !ok {
		return
	}
	if d.msg.Put(Event{Now: cb.Arg0, Expiration: cb.Arg1}) {
		d.dropped++
	}
}

// Dropped returns how many events were overwritten before being consumed.
func (d *Driver) Dropped() uint32 { return d.dropped }

// Subscribe registers the alarm upcall.
func (d *Driver) Subscribe() error {
	if err := d.k.Subscribe(abi.DriverAlarm, abi.AlarmSubCallback, d.upcall, 0); err != nil {
		return fmt.Errorf("alarm: subscribe: %w", err)
	}
	return nil
}

// Present checks that the kernel has an alarm driver.
func (d *Driver) Present() error {
	_, err := d.k.Command(abi.DriverAlarm, abi.AlarmCmdPresent, 0, 0)
	return err
}

// Frequency returns the tick frequency in Hz.
func (d *Driver) Frequency() (uint, error) {
	return d.k.Command(abi.DriverAlarm, abi.AlarmCmdFrequency, 0, 0)
}

// Now returns the current tick.
func (d *Driver) Now() (uint, error) {
	return d.k.Command(abi.DriverAlarm, abi.AlarmCmdNow, 0, 0)
}

// Arm subscribes and starts the alarm for an absolute deadline tick.
func (d *Driver) Arm(deadline uint) error {
	if err := d.Subscribe(); err != nil {
		return err
	}
	if _, err := d.k.Command(abi.DriverAlarm, abi.AlarmCmdStart, deadline, 0); err != nil {
		return fmt.Errorf("alarm: start: %w", err)
	}
	return nil
}

// ArmAfter arms the alarm dt from now and returns the deadline tick.
func (d *Driver) ArmAfter(dt time.Duration) (uint, error) {
	now, err := d.Now()
	if err != nil {
		return 0, fmt.Errorf("alarm: now: %w", err)
	}
	ms := uint(dt / time.Millisecond)
	ticks, err := d.MillisecondsToTicks(ms)
	if err != nil {
		return 0, err
	}
	deadline := now + ticks
	return deadline, d.Arm(deadline)
}

// Disarm stops the alarm armed for deadline.
func (d *Driver) Disarm(deadline uint) error {
	if _, err := d.k.Command(abi.DriverAlarm, abi.AlarmCmdStop, deadline, 0); err != nil {
		return fmt.Errorf("alarm: stop: %w", err)
	}
	return nil
}

// MillisecondsToTicks converts ms to ticks at the kernel's frequency.
func (d *Driver) MillisecondsToTicks(ms uint) (uint, error) {
	freq, err := d.Frequency()
	if err != nil {
		return 0, fmt.Errorf("alarm: frequency: %w", err)
	}
	return (ms/1000)*freq + (ms%1000)*freq/1000, nil
}

// TicksToDuration converts ticks to wall time at the kernel's frequency.
func (d *Driver) TicksToDuration(ticks uint) (time.Duration, error) {
	freq, err := d.Frequency()
	if err != nil {
		return 0, fmt.Errorf("alarm: frequency: %w", err)
	}
	if freq == 0 {
		return 0, abi.ErrInvalid
	}
	secs := ticks / freq
	rem := ticks % freq
	return time.Duration(secs)*time.Second + time.Duration(rem)*time.Second/time.Duration(freq), nil
}

// Client is the application half of the alarm.
type Client struct {
	d *Driver
}

// HasMessage reports whether an Event is waiting.
func (c *Client) HasMessage() bool { return c.d.msg.Pending() }

// Reap discards a waiting Event.
func (c *Client) Reap() { c.d.msg.Clear() }

// Consume returns and clears the waiting Event.
func (c *Client) Consume() (Event, error) {
	ev, ok := c.d.msg.Take()
	if !ok {
		return Event{}, task.ErrNotFound
	}
	return ev, nil
}

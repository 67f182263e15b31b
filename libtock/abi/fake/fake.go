// Package fake provides a recording abi.Kernel for driver tests.
package fake

import (
	"context"
	"errors"

	"tock/libtock/abi"
)

// ErrNoUpcall is returned by Yield when nothing is queued.
var ErrNoUpcall = errors.New("fake: yield with no queued upcall")

// Call records one kernel call.
type Call struct {
	Op     string
	Driver abi.DriverNum
	Num    uint32
	Arg0   uint
	Arg1   uint
	Len    int
}

type key struct {
	driver abi.DriverNum
	num    uint32
}

type reply struct {
	val uint
	err error
}

type pending struct {
	k          key
	a0, a1, a2 uint
}

// Kernel records every call and lets tests fire upcalls by hand.
type Kernel struct {
	Calls []Call

	Yields int

	replies  map[key]reply
	subErr   map[key]error
	allowErr map[key]error
	upcalls  map[key]abi.Upcall
	userdata map[key]uint
	allowed  map[key][]byte
	queue    []pending
}

// New returns an empty fake kernel. Commands succeed with value 0 by default.
func New() *Kernel {
	return &Kernel{
		replies:  make(map[key]reply),
		subErr:   make(map[key]error),
		allowErr: make(map[key]error),
		upcalls:  make(map[key]abi.Upcall),
		userdata: make(map[key]uint),
		allowed:  make(map[key][]byte),
	}
}

// SetCommand fixes the reply for a driver command.
func (k *Kernel) SetCommand(driver abi.DriverNum, cmd uint32, val uint, err error) {
	k.replies[key{driver, cmd}] = reply{val: val, err: err}
}

// FailSubscribe makes Subscribe fail for the slot.
func (k *Kernel) FailSubscribe(driver abi.DriverNum, sub uint32, err error) {
	k.subErr[key{driver, sub}] = err
}

// FailAllow makes Allow fail for the slot.
func (k *Kernel) FailAllow(driver abi.DriverNum, allow uint32, err error) {
	k.allowErr[key{driver, allow}] = err
}

func (k *Kernel) Command(driver abi.DriverNum, cmd uint32, arg0, arg1 uint) (uint, error) {
	k.Calls = append(k.Calls, Call{Op: "command", Driver: driver, Num: cmd, Arg0: arg0, Arg1: arg1})
	r := k.replies[key{driver, cmd}]
	return r.val, r.err
}

func (k *Kernel) Subscribe(driver abi.DriverNum, sub uint32, fn abi.Upcall, userdata uint) error {
	k.Calls = append(k.Calls, Call{Op: "subscribe", Driver: driver, Num: sub})
	kk := key{driver, sub}
	if err := k.subErr[kk]; err != nil {
		return err
	}
	k.upcalls[kk] = fn
	k.userdata[kk] = userdata
	return nil
}

func (k *Kernel) Allow(driver abi.DriverNum, allow uint32, buf []byte) error {
	k.Calls = append(k.Calls, Call{Op: "allow", Driver: driver, Num: allow, Len: len(buf)})
	kk := key{driver, allow}
	if err := k.allowErr[kk]; err != nil {
		return err
	}
	k.allowed[kk] = buf
	return nil
}

// Yield delivers the oldest queued upcall.
func (k *Kernel) Yield(ctx context.Context) error {
	k.Yields++
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(k.queue) == 0 {
		return ErrNoUpcall
	}
	p := k.queue[0]
	k.queue = k.queue[1:]
	k.fire(p.k, p.a0, p.a1, p.a2)
	return nil
}

// Fire invokes the subscribed upcall immediately, as interrupt delivery would.
// It reports false if nothing is subscribed.
func (k *Kernel) Fire(driver abi.DriverNum, sub uint32, a0, a1, a2 uint) bool {
	return k.fire(key{driver, sub}, a0, a1, a2)
}

// Queue schedules an upcall for delivery by the next Yield.
func (k *Kernel) Queue(driver abi.DriverNum, sub uint32, a0, a1, a2 uint) {
	k.queue = append(k.queue, pending{k: key{driver, sub}, a0: a0, a1: a1, a2: a2})
}

// Queued returns how many upcalls wait for Yield.
func (k *Kernel) Queued() int { return len(k.queue) }

// Allowed returns the buffer last shared for the slot.
func (k *Kernel) Allowed(driver abi.DriverNum, allow uint32) []byte {
	return k.allowed[key{driver, allow}]
}

// Count returns how many calls match op, driver and number.
func (k *Kernel) Count(op string, driver abi.DriverNum, num uint32) int {
	n := 0
	for _, c := range k.Calls {
		if c.Op == op && c.Driver == driver && c.Num == num {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (k *Kernel) Reset() { k.Calls = nil }

func (k *Kernel) fire(kk key, a0, a1, a2 uint) bool {
	fn := k.upcalls[kk]
	if fn == nil {
		return false
	}
	fn(a0, a1, a2, k.userdata[kk])
	return true
}

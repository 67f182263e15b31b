package console

import (
	"fmt"

	"tock/libtock/abi"
	"tock/libtock/task"
)

// Reader is the task half of console input.
type Reader struct {
	k abi.Kernel

	buf     [BufferSize]byte
	events  task.Mailbox[abi.CallbackMessage]
	state   State
	msg     task.Mailbox[Result]
	dropped uint32
	stray   uint32

	client ReadClient
}

// NewReader returns the console reader bound to k.
func NewReader(k abi.Kernel) *Reader {
	r := &Reader{k: k}
	r.client.r = r
	return r
}

// Client returns the application-facing half.
func (r *Reader) Client() *ReadClient { return &r.client }

func (r *Reader) upcall(arg0, arg1, arg2, userdata uint) {
	if r.events.Put(abi.CallbackMessage{Arg0: arg0, Arg1: arg1, Arg2: arg2, Userdata: userdata}) {
		r.dropped++
	}
}

// HasPendingEvent reports whether an upcall waits for Advance.
func (r *Reader) HasPendingEvent() bool { return r.events.Pending() }

// IsOperationActive reports whether a read is ongoing or still settling an abort.
func (r *Reader) IsOperationActive() bool { return r.state.Active() }

// State returns the current operation state.
func (r *Reader) State() State { return r.state }

// Dropped returns how many upcalls were overwritten before Advance ran.
func (r *Reader) Dropped() uint32 { return r.dropped }

// Stray returns how many upcalls arrived with no read outstanding.
func (r *Reader) Stray() uint32 { return r.stray }

// Advance applies the pending upcall to the read state.
//
// An error status ends the read at once. While aborting, any upcall is the kernel's
// acknowledgement and ends the read with what was transferred so far.
func (r *Reader) Advance() {
	cb, ok := r.events.Take()
	if !ok {
		return
	}
	if !r.state.Active() {
		r.stray++
		return
	}

	if err := abi.StatusError(cb.Arg1); err != nil {
		r.finish(Result{Err: err})
		return
	}

	r.state.progress(cb.Arg0)
	switch r.state.Phase {
	case Ongoing:
		if r.state.Pending == 0 {
			r.finish(Result{N: r.state.Completed})
		}
	case Aborting:
		r.finish(Result{N: r.state.Completed})
	}
}

func (r *Reader) finish(res Result) {
	r.state = State{}
	if r.msg.Put(res) {
		r.dropped++
	}
}

// StartRead asks the kernel for n bytes.
func (r *Reader) StartRead(n int) error {
	if r.state.Active() {
		return abi.ErrBusy
	}
	if r.msg.Pending() {
		return abi.ErrBusy
	}
	if n < 0 || n > len(r.buf) {
		return abi.ErrInvalid
	}

	if err := r.k.Allow(abi.DriverConsole, abi.ConsoleAllowRead, r.buf[:n]); err != nil {
		return fmt.Errorf("console: read allow: %w", err)
	}
	if err := r.k.Subscribe(abi.DriverConsole, abi.ConsoleSubRead, r.upcall, 0); err != nil {
		return fmt.Errorf("console: read subscribe: %w", err)
	}
	if _, err := r.k.Command(abi.DriverConsole, abi.ConsoleCmdRead, uint(n), 0); err != nil {
		return fmt.Errorf("console: read: %w", err)
	}

	r.state = State{Phase: Ongoing, Pending: n}
	return nil
}

// Abort asks the kernel to stop the ongoing read. The read stays active until the
// acknowledging upcall has been processed.
func (r *Reader) Abort() error {
	switch r.state.Phase {
	case Idle:
		return abi.ErrInvalid
	case Aborting:
		return abi.ErrBusy
	}
	if _, err := r.k.Command(abi.DriverConsole, abi.ConsoleCmdReadAbort, 0, 0); err != nil {
		return fmt.Errorf("console: read abort: %w", err)
	}
	r.state.Phase = Aborting
	return nil
}

func (r *Reader) clearBuf() {
	r.buf = [BufferSize]byte{}
}

// ReadClient is the application half of console input.
type ReadClient struct {
	r *Reader
}

// HasMessage reports whether a read result is waiting.
func (c *ReadClient) HasMessage() bool { return c.r.msg.Pending() }

// Reap discards a waiting result and its data.
func (c *ReadClient) Reap() {
	if !c.r.msg.Pending() {
		return
	}
	c.r.msg.Clear()
	c.r.clearBuf()
}

// Consume copies a completed read into dst. len(dst) must equal the number of bytes
// read; a short read is reported as ErrInvalid rather than truncated. The result is
// consumed whether or not the copy succeeds.
func (c *ReadClient) Consume(dst []byte) error {
	res, ok := c.r.msg.Take()
	if !ok {
		return task.ErrNotFound
	}
	if res.Err != nil {
		return res.Err
	}
	if res.N != len(dst) {
		return abi.ErrInvalid
	}
	copy(dst, c.r.buf[:res.N])
	c.r.clearBuf()
	return nil
}

// ConsumePartial copies whatever a read (typically an aborted one) delivered and
// returns its length. dst must hold at least that many bytes.
func (c *ReadClient) ConsumePartial(dst []byte) (int, error) {
	res, ok := c.r.msg.Take()
	if !ok {
		return 0, task.ErrNotFound
	}
	if res.Err != nil {
		return 0, res.Err
	}
	if res.N > len(dst) {
		return 0, abi.ErrInvalid
	}
	n := copy(dst, c.r.buf[:res.N])
	c.r.clearBuf()
	return n, nil
}

package console

import (
	"fmt"

	"tock/libtock/abi"
	"tock/libtock/task"
)

// Writer is the task half of console output.
type Writer struct {
	k abi.Kernel

	buf     [BufferSize]byte
	n       int
	events  task.Mailbox[abi.CallbackMessage]
	state   State
	msg     task.Mailbox[Result]
	dropped uint32
	stray   uint32

	client WriteClient
}

// NewWriter returns the console writer bound to k.
func NewWriter(k abi.Kernel) *Writer {
	w := &Writer{k: k}
	w.client.w = w
	return w
}

// Client returns the application-facing half.
func (w *Writer) Client() *WriteClient { return &w.client }

func (w *Writer) upcall(arg0, arg1, arg2, userdata uint) {
	if w.events.Put(abi.CallbackMessage{Arg0: arg0, Arg1: arg1, Arg2: arg2, Userdata: userdata}) {
		w.dropped++
	}
}

// HasPendingEvent reports whether an upcall waits for Advance.
func (w *Writer) HasPendingEvent() bool { return w.events.Pending() }

// IsOperationActive reports whether a write is outstanding.
func (w *Writer) IsOperationActive() bool { return w.state.Active() }

// State returns the current operation state.
func (w *Writer) State() State { return w.state }

// Dropped returns how many upcalls were overwritten before Advance ran.
func (w *Writer) Dropped() uint32 { return w.dropped }

// Stray returns how many upcalls arrived with no write outstanding.
func (w *Writer) Stray() uint32 { return w.stray }

// Buffered returns the bytes shared with the kernel by the last successful StartWrite.
// The slice aliases the shared buffer and must not be modified.
func (w *Writer) Buffered() []byte { return w.buf[:w.n] }

// Advance applies the pending upcall to the write state.
func (w *Writer) Advance() {
	cb, ok := w.events.Take()
	if !ok {
		return
	}
	if !w.state.Active() {
		w.stray++
		return
	}

	if err := abi.StatusError(cb.Arg1); err != nil {
		w.finish(Result{Err: err})
		return
	}

	w.state.progress(cb.Arg0)
	if w.state.Pending == 0 {
		w.finish(Result{N: w.state.Completed})
	}
}

func (w *Writer) finish(res Result) {
	w.state = State{}
	if w.msg.Put(res) {
		w.dropped++
	}
}

// StartWrite copies p into the shared buffer and starts writing it.
//
// If the kernel refuses the operation, the buffer is cleared and the writer stays Idle.
func (w *Writer) StartWrite(p []byte) error {
	if w.state.Active() {
		return abi.ErrBusy
	}
	if w.msg.Pending() {
		return abi.ErrBusy
	}
	if len(p) > len(w.buf) {
		return abi.ErrInvalid
	}

	w.clearBuf()
	w.n = copy(w.buf[:], p)

	if err := w.issue(w.n); err != nil {
		w.clearBuf()
		return err
	}
	w.state = State{Phase: Ongoing, Pending: w.n}
	return nil
}

// WriteString is StartWrite for a string.
func (w *Writer) WriteString(s string) error {
	if len(s) > len(w.buf) {
		return abi.ErrInvalid
	}
	var tmp [BufferSize]byte
	n := copy(tmp[:], s)
	return w.StartWrite(tmp[:n])
}

func (w *Writer) issue(n int) error {
	if err := w.k.Allow(abi.DriverConsole, abi.ConsoleAllowWrite, w.buf[:n]); err != nil {
		return fmt.Errorf("console: write allow: %w", err)
	}
	if err := w.k.Subscribe(abi.DriverConsole, abi.ConsoleSubWrite, w.upcall, 0); err != nil {
		return fmt.Errorf("console: write subscribe: %w", err)
	}
	if _, err := w.k.Command(abi.DriverConsole, abi.ConsoleCmdWrite, uint(n), 0); err != nil {
		return fmt.Errorf("console: write: %w", err)
	}
	return nil
}

func (w *Writer) clearBuf() {
	w.buf = [BufferSize]byte{}
	w.n = 0
}

// WriteClient is the application half of console output.
type WriteClient struct {
	w *Writer
}

// HasMessage reports whether a write result is waiting.
func (c *WriteClient) HasMessage() bool { return c.w.msg.Pending() }

// Reap discards a waiting result.
func (c *WriteClient) Reap() { c.w.msg.Clear() }

// Consume returns the number of bytes written, or the error that ended the write.
func (c *WriteClient) Consume() (int, error) {
	res, ok := c.w.msg.Take()
	if !ok {
		return 0, task.ErrNotFound
	}
	return res.N, res.Err
}

package console

import (
	"errors"
	"testing"

	"tock/libtock/abi"
	"tock/libtock/abi/fake"
	"tock/libtock/task"
)

func deliverWrite(t *testing.T, k *fake.Kernel, w *Writer, n uint, status abi.Code) {
	t.Helper()
	if !k.Fire(abi.DriverConsole, abi.ConsoleSubWrite, n, status.Word(), 0) {
		t.Fatal("write upcall not subscribed")
	}
	w.Advance()
}

func TestWriteRoundTrip(t *testing.T) {
	k := fake.New()
	w := NewWriter(k)
	payload := []byte("0123456789")

	if err := w.StartWrite(payload); err != nil {
		t.Fatalf("StartWrite() error = %v", err)
	}
	if got := k.Allowed(abi.DriverConsole, abi.ConsoleAllowWrite); string(got) != string(payload) {
		t.Fatalf("allowed buffer = %q, want %q", got, payload)
	}

	deliverWrite(t, k, w, 4, abi.Success)
	if w.Client().HasMessage() {
		t.Fatalf("HasMessage() = true after partial write")
	}
	if st := w.State(); st.Pending != 6 || st.Completed != 4 {
		t.Fatalf("State() = %s, want ongoing(pending=6 completed=4)", st)
	}
	deliverWrite(t, k, w, 6, abi.Success)

	n, err := w.Client().Consume()
	if err != nil || n != 10 {
		t.Fatalf("Consume() = %d, %v, want 10, nil", n, err)
	}
	if string(w.Buffered()) != string(payload) {
		t.Fatalf("Buffered() = %q, want %q", w.Buffered(), payload)
	}
	if w.IsOperationActive() {
		t.Fatalf("IsOperationActive() = true after completion")
	}
}

func TestWriteErrorDiscardsProgress(t *testing.T) {
	k := fake.New()
	w := NewWriter(k)
	_ = w.StartWrite([]byte("0123456789"))

	deliverWrite(t, k, w, 4, abi.Success)
	deliverWrite(t, k, w, 0, abi.ErrFail)

	n, err := w.Client().Consume()
	if !errors.Is(err, abi.ErrFail) {
		t.Fatalf("Consume() error = %v, want ErrFail", err)
	}
	if n != 0 {
		t.Fatalf("Consume() n = %d, want 0", n)
	}
}

func TestStartWritePreconditions(t *testing.T) {
	k := fake.New()
	w := NewWriter(k)

	if err := w.StartWrite(make([]byte, BufferSize+1)); !errors.Is(err, abi.ErrInvalid) {
		t.Fatalf("StartWrite(too long) error = %v, want ErrInvalid", err)
	}

	_ = w.StartWrite([]byte("a"))
	k.Reset()
	if err := w.StartWrite([]byte("b")); !errors.Is(err, abi.ErrBusy) {
		t.Fatalf("StartWrite() while ongoing error = %v, want ErrBusy", err)
	}
	if len(k.Calls) != 0 {
		t.Fatalf("StartWrite() while ongoing made %d kernel calls, want 0", len(k.Calls))
	}

	deliverWrite(t, k, w, 1, abi.Success)
	k.Reset()
	if err := w.StartWrite([]byte("b")); !errors.Is(err, abi.ErrBusy) {
		t.Fatalf("StartWrite() with unread message error = %v, want ErrBusy", err)
	}
	if len(k.Calls) != 0 {
		t.Fatalf("StartWrite() with unread message made %d kernel calls, want 0", len(k.Calls))
	}
}

func TestStartWriteFailedIssueStaysIdle(t *testing.T) {
	k := fake.New()
	k.SetCommand(abi.DriverConsole, abi.ConsoleCmdWrite, 0, abi.ErrBusy)
	w := NewWriter(k)

	if err := w.StartWrite([]byte("abc")); !errors.Is(err, abi.ErrBusy) {
		t.Fatalf("StartWrite() error = %v, want ErrBusy", err)
	}
	if w.IsOperationActive() {
		t.Fatalf("IsOperationActive() = true after failed issue")
	}
	if len(w.Buffered()) != 0 {
		t.Fatalf("Buffered() = %q after failed issue, want empty", w.Buffered())
	}

	k.SetCommand(abi.DriverConsole, abi.ConsoleCmdWrite, 0, nil)
	if err := w.StartWrite([]byte("abc")); err != nil {
		t.Fatalf("StartWrite() retry error = %v", err)
	}
}

func TestStartWriteAllowFailure(t *testing.T) {
	k := fake.New()
	k.FailAllow(abi.DriverConsole, abi.ConsoleAllowWrite, abi.ErrNoMem)
	w := NewWriter(k)

	if err := w.StartWrite([]byte("abc")); !errors.Is(err, abi.ErrNoMem) {
		t.Fatalf("StartWrite() error = %v, want ErrNoMem", err)
	}
	if n := k.Count("command", abi.DriverConsole, abi.ConsoleCmdWrite); n != 0 {
		t.Fatalf("write commands = %d, want 0", n)
	}
}

func TestConsumeWriteEmpty(t *testing.T) {
	w := NewWriter(fake.New())
	if _, err := w.Client().Consume(); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("Consume() error = %v, want ErrNotFound", err)
	}
}

func TestOverreportedProgressIsClamped(t *testing.T) {
	k := fake.New()
	w := NewWriter(k)
	_ = w.StartWrite([]byte("abc"))
	deliverWrite(t, k, w, 9, abi.Success)

	n, err := w.Client().Consume()
	if err != nil || n != 3 {
		t.Fatalf("Consume() = %d, %v, want 3, nil", n, err)
	}
}

func TestPrinter(t *testing.T) {
	var p Printer
	if err := p.Printf("Hello world! %d \n", 3); err != nil {
		t.Fatalf("Printf() error = %v", err)
	}
	if got := string(p.Bytes()); got != "Hello world! 3 \n" {
		t.Fatalf("Bytes() = %q", got)
	}

	if err := p.Printf("%s", make([]byte, BufferSize)); !errors.Is(err, abi.ErrSize) {
		t.Fatalf("Printf(overflow) error = %v, want ErrSize", err)
	}
	if p.Len() != 16 {
		t.Fatalf("Len() after overflow = %d, want 16", p.Len())
	}

	p.Reset()
	if p.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", p.Len())
	}
}

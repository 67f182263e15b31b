package task

import "testing"

func TestMailboxTakeEmpty(t *testing.T) {
	var mb Mailbox[int]

	if _, ok := mb.Take(); ok {
		t.Fatalf("Take() ok = true, want false")
	}
	if mb.Pending() {
		t.Fatalf("Pending() = true, want false")
	}
}

func TestMailboxPutReplacesUnconsumed(t *testing.T) {
	var mb Mailbox[int]

	if dropped := mb.Put(1); dropped {
		t.Fatalf("Put(1) dropped = true, want false")
	}
	if dropped := mb.Put(2); !dropped {
		t.Fatalf("Put(2) dropped = false, want true")
	}

	v, ok := mb.Take()
	if !ok || v != 2 {
		t.Fatalf("Take() = %d, %v, want 2, true", v, ok)
	}
	if _, ok := mb.Take(); ok {
		t.Fatalf("second Take() ok = true, want false")
	}
}

func TestMailboxPeekKeepsValue(t *testing.T) {
	var mb Mailbox[string]
	mb.Put("x")

	if v, ok := mb.Peek(); !ok || v != "x" {
		t.Fatalf("Peek() = %q, %v, want x, true", v, ok)
	}
	if !mb.Pending() {
		t.Fatalf("Pending() = false after Peek, want true")
	}
	mb.Clear()
	if mb.Pending() {
		t.Fatalf("Pending() = true after Clear, want false")
	}
}

type stubClient struct {
	msg    bool
	reaped int
}

func (c *stubClient) HasMessage() bool { return c.msg }
func (c *stubClient) Reap()            { c.msg = false; c.reaped++ }

type stubDriver struct{ pending bool }

func (d *stubDriver) HasPendingEvent() bool { return d.pending }
func (d *stubDriver) Advance()              { d.pending = false }

func TestAggregates(t *testing.T) {
	a := &stubClient{}
	b := &stubClient{msg: true}

	if !AnyMessage(a, b) {
		t.Fatalf("AnyMessage() = false, want true")
	}
	ReapAll(a, b, nil)
	if AnyMessage(a, b) {
		t.Fatalf("AnyMessage() after ReapAll = true, want false")
	}
	if a.reaped != 1 || b.reaped != 1 {
		t.Fatalf("reaped = %d,%d, want 1,1", a.reaped, b.reaped)
	}

	if AnyPending(&stubDriver{}, nil) {
		t.Fatalf("AnyPending() = true, want false")
	}
	if !AnyPending(&stubDriver{}, &stubDriver{pending: true}) {
		t.Fatalf("AnyPending() = false, want true")
	}
}

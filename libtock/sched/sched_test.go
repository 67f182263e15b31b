package sched

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tock/libtock/abi"
	"tock/libtock/abi/fake"
	"tock/libtock/button"
	"tock/libtock/console"
)

// script is a Task whose suspension points are a list of closures.
type script struct {
	steps []func() Cond
	i     int
}

func (s *script) Advance() Cond {
	if s.i >= len(s.steps) {
		return nil
	}
	f := s.steps[s.i]
	s.i++
	return f()
}

type lineLog struct{ lines []string }

func (l *lineLog) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *lineLog) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func TestAwaitResumesOnlyOnTerminalMessage(t *testing.T) {
	k := fake.New()
	w := console.NewWriter(k)
	s := New(k, nil)
	s.AddDriver(w)
	s.AddClient(w.Client())

	var written int
	s.SetTask(&script{steps: []func() Cond{
		func() Cond {
			if err := w.StartWrite([]byte("0123456789")); err != nil {
				t.Fatalf("StartWrite() error = %v", err)
			}
			k.Queue(abi.DriverConsole, abi.ConsoleSubWrite, 4, 0, 0)
			k.Queue(abi.DriverConsole, abi.ConsoleSubWrite, 6, 0, 0)
			return Await(w.Client())
		},
		func() Cond {
			n, err := w.Client().Consume()
			if err != nil {
				t.Fatalf("Consume() error = %v", err)
			}
			written = n
			return nil
		},
	}})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if written != 10 {
		t.Fatalf("written = %d, want 10", written)
	}
	_, yields, resumes := s.Stats()
	if yields != 2 || resumes != 2 {
		t.Fatalf("yields, resumes = %d, %d, want 2, 2", yields, resumes)
	}
}

func TestJoinWaitsForAbortAcknowledgement(t *testing.T) {
	k := fake.New()
	r := console.NewReader(k)
	s := New(k, nil)
	s.AddDriver(r)
	s.AddClient(r.Client())

	var got int
	s.SetTask(&script{steps: []func() Cond{
		func() Cond {
			if err := r.StartRead(5); err != nil {
				t.Fatalf("StartRead() error = %v", err)
			}
			if err := r.Abort(); err != nil {
				t.Fatalf("Abort() error = %v", err)
			}
			k.Queue(abi.DriverConsole, abi.ConsoleSubRead, 3, 0, 0)
			return Idle(r)
		},
		func() Cond {
			if r.IsOperationActive() {
				t.Fatalf("resumed while read still active")
			}
			var dst [console.BufferSize]byte
			n, err := r.Client().ConsumePartial(dst[:])
			if err != nil {
				t.Fatalf("ConsumePartial() error = %v", err)
			}
			got = n
			return nil
		},
	}})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != 3 {
		t.Fatalf("read = %d, want 3", got)
	}
}

func TestSelectThenReap(t *testing.T) {
	k := fake.New()
	r := console.NewReader(k)
	b := button.New(k)
	s := New(k, nil)
	s.AddDriver(r)
	s.AddDriver(b)
	s.AddClient(r.Client())
	s.AddClient(b.Client())

	pressed := false
	s.SetTask(&script{steps: []func() Cond{
		func() Cond {
			_ = r.StartRead(5)
			_ = b.Subscribe()
			k.Queue(abi.DriverButton, abi.ButtonSubCallback, 0, 0, 0)
			k.Queue(abi.DriverButton, abi.ButtonSubCallback, 0, 1, 0)
			return Any(Await(r.Client()), b.Client().HasPressed)
		},
		func() Cond {
			if _, err := b.Client().ConsumePressed(); err == nil {
				pressed = true
				_ = r.Abort()
				k.Queue(abi.DriverConsole, abi.ConsoleSubRead, 0, 0, 0)
			}
			s.ReapClientMessages()
			return Idle(r)
		},
		func() Cond {
			s.ReapClientMessages()
			return nil
		},
	}})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !pressed {
		t.Fatalf("button press not observed")
	}
	if s.HasClientMessages() {
		t.Fatalf("HasClientMessages() = true after reap")
	}
}

func TestYieldErrorStopsRun(t *testing.T) {
	k := fake.New()
	w := console.NewWriter(k)
	s := New(k, nil)
	s.AddDriver(w)
	s.SetTask(&script{steps: []func() Cond{
		func() Cond {
			_ = w.StartWrite([]byte("x"))
			return Await(w.Client())
		},
	}})

	err := s.Run(context.Background())
	if !errors.Is(err, fake.ErrNoUpcall) {
		t.Fatalf("Run() error = %v, want ErrNoUpcall", err)
	}
}

func TestRunHonorsContext(t *testing.T) {
	k := fake.New()
	s := New(k, nil)
	s.SetTask(&script{steps: []func() Cond{func() Cond { return Any() }}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestDroppedEventsAreLogged(t *testing.T) {
	k := fake.New()
	b := button.New(k)
	_ = b.Subscribe()
	log := &lineLog{}
	s := New(k, log)
	s.AddDriver(b)

	k.Fire(abi.DriverButton, abi.ButtonSubCallback, 0, 1, 0)
	k.Fire(abi.DriverButton, abi.ButtonSubCallback, 0, 0, 0)
	k.Queue(abi.DriverButton, abi.ButtonSubCallback, 0, 1, 0)
	if err := s.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if len(log.lines) != 1 || !strings.Contains(log.lines[0], "dropped 1") {
		t.Fatalf("log = %q, want one drop line", log.lines)
	}
}

func TestConds(t *testing.T) {
	yes, no := Now(), Not(Now())
	if !Any(no, yes)() || Any(no, no)() || Any()() {
		t.Fatalf("Any() mismatch")
	}
	if !All(yes, yes)() || All(yes, no)() || !All()() {
		t.Fatalf("All() mismatch")
	}
}

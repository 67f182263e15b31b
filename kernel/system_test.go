package kernel

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tock/libtock/abi"
)

type call struct{ a0, a1 uint }

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) upcall(a0, a1, _, _ uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{a0, a1})
}

func (r *recorder) got() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	err error
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}
func (l *lineLog) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

type fakeLED struct{ on bool }

func (l *fakeLED) High() { l.on = true }
func (l *fakeLED) Low()  { l.on = false }

func yieldN(t *testing.T, s *System, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := s.Yield(ctx)
		cancel()
		if err != nil {
			t.Fatalf("Yield() #%d error = %v", i, err)
		}
	}
}

func TestUnknownNumbers(t *testing.T) {
	s := NewSystem(DefaultConfig(), Devices{})

	if _, err := s.Command(9, 0, 0, 0); !errors.Is(err, abi.ErrNoDevice) {
		t.Fatalf("Command(driver 9) error = %v, want ErrNoDevice", err)
	}
	if _, err := s.Command(abi.DriverAlarm, 99, 0, 0); !errors.Is(err, abi.ErrNoSupport) {
		t.Fatalf("Command(alarm 99) error = %v, want ErrNoSupport", err)
	}
	if err := s.Subscribe(abi.DriverLED, 0, func(_, _, _, _ uint) {}, 0); !errors.Is(err, abi.ErrNoSupport) {
		t.Fatalf("Subscribe(led) error = %v, want ErrNoSupport", err)
	}
	if err := s.Allow(abi.DriverAlarm, 0, nil); !errors.Is(err, abi.ErrNoSupport) {
		t.Fatalf("Allow(alarm) error = %v, want ErrNoSupport", err)
	}
	if err := s.Allow(7, 0, nil); !errors.Is(err, abi.ErrNoDevice) {
		t.Fatalf("Allow(driver 7) error = %v, want ErrNoDevice", err)
	}
}

func TestYieldHonorsContext(t *testing.T) {
	s := NewSystem(DefaultConfig(), Devices{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Yield(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Yield() error = %v, want context.Canceled", err)
	}
}

func TestAlarmFiresOnce(t *testing.T) {
	s := NewSystem(Config{AlarmFrequency: 32768}, Devices{})
	var r recorder
	_ = s.Subscribe(abi.DriverAlarm, abi.AlarmSubCallback, r.upcall, 0)

	if f, _ := s.Command(abi.DriverAlarm, abi.AlarmCmdFrequency, 0, 0); f != 32768 {
		t.Fatalf("frequency = %d, want 32768", f)
	}
	s.TickTo(10)
	if _, err := s.Command(abi.DriverAlarm, abi.AlarmCmdStart, 15, 0); err != nil {
		t.Fatalf("start error = %v", err)
	}
	s.TickTo(14)
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d before expiration, want 0", s.Pending())
	}
	s.TickTo(16)
	s.TickTo(20)
	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", s.Pending())
	}
	yieldN(t, s, 1)
	if got := r.got(); len(got) != 1 || got[0] != (call{16, 15}) {
		t.Fatalf("upcalls = %v, want [{16 15}]", got)
	}
	if now, _ := s.Command(abi.DriverAlarm, abi.AlarmCmdNow, 0, 0); now != 20 {
		t.Fatalf("now = %d, want 20", now)
	}
}

func TestAlarmStop(t *testing.T) {
	s := NewSystem(DefaultConfig(), Devices{})
	var r recorder
	_ = s.Subscribe(abi.DriverAlarm, abi.AlarmSubCallback, r.upcall, 0)

	_, _ = s.Command(abi.DriverAlarm, abi.AlarmCmdStart, 5, 0)
	if _, err := s.Command(abi.DriverAlarm, abi.AlarmCmdStop, 5, 0); err != nil {
		t.Fatalf("stop error = %v", err)
	}
	if _, err := s.Command(abi.DriverAlarm, abi.AlarmCmdStop, 5, 0); !errors.Is(err, abi.ErrAlready) {
		t.Fatalf("second stop error = %v, want ErrAlready", err)
	}
	s.TickTo(10)
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d after stop, want 0", s.Pending())
	}
}

func TestAlarmPastExpirationFiresImmediately(t *testing.T) {
	s := NewSystem(DefaultConfig(), Devices{})
	var r recorder
	_ = s.Subscribe(abi.DriverAlarm, abi.AlarmSubCallback, r.upcall, 0)
	s.TickTo(100)
	_, _ = s.Command(abi.DriverAlarm, abi.AlarmCmdStart, 50, 0)
	yieldN(t, s, 1)
	if got := r.got(); len(got) != 1 || got[0] != (call{100, 50}) {
		t.Fatalf("upcalls = %v, want [{100 50}]", got)
	}
}

func TestButtonInterrupts(t *testing.T) {
	s := NewSystem(Config{Buttons: 2}, Devices{})
	var r recorder
	_ = s.Subscribe(abi.DriverButton, abi.ButtonSubCallback, r.upcall, 0)

	if n, _ := s.Command(abi.DriverButton, abi.ButtonCmdCount, 0, 0); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	_ = s.SetButton(1, true)
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d without interrupt, want 0", s.Pending())
	}

	if _, err := s.Command(abi.DriverButton, abi.ButtonCmdEnableIRQ, 1, 0); err != nil {
		t.Fatalf("enable_irq error = %v", err)
	}
	_ = s.SetButton(1, true)
	_ = s.SetButton(1, false)
	_ = s.SetButton(1, true)
	yieldN(t, s, 2)
	if got := r.got(); len(got) != 2 || got[0] != (call{1, 0}) || got[1] != (call{1, 1}) {
		t.Fatalf("upcalls = %v, want [{1 0} {1 1}]", got)
	}

	level, err := s.Command(abi.DriverButton, abi.ButtonCmdState, 1, 0)
	if err != nil || level != 1 {
		t.Fatalf("state = %d, %v, want 1, nil", level, err)
	}
	_ = s.SetButton(1, false)
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d after disable, want 0", s.Pending())
	}

	if err := s.SetButton(2, true); !errors.Is(err, abi.ErrInvalid) {
		t.Fatalf("SetButton(2) error = %v, want ErrInvalid", err)
	}
	if _, err := s.Command(abi.DriverButton, abi.ButtonCmdEnableIRQ, 5, 0); !errors.Is(err, abi.ErrInvalid) {
		t.Fatalf("enable_irq(5) error = %v, want ErrInvalid", err)
	}
}

func TestLEDCommands(t *testing.T) {
	led := &fakeLED{}
	s := NewSystem(DefaultConfig(), Devices{LED: led})

	if n, _ := s.Command(abi.DriverLED, abi.LEDCmdCount, 0, 0); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	_, _ = s.Command(abi.DriverLED, abi.LEDCmdOn, 0, 0)
	if !led.on || !s.LEDOn() {
		t.Fatalf("LED off after on command")
	}
	_, _ = s.Command(abi.DriverLED, abi.LEDCmdToggle, 0, 0)
	if led.on {
		t.Fatalf("LED on after toggle")
	}
	if _, err := s.Command(abi.DriverLED, abi.LEDCmdOn, 1, 0); !errors.Is(err, abi.ErrInvalid) {
		t.Fatalf("on(1) error = %v, want ErrInvalid", err)
	}

	none := NewSystem(DefaultConfig(), Devices{})
	if n, _ := none.Command(abi.DriverLED, abi.LEDCmdCount, 0, 0); n != 0 {
		t.Fatalf("count without LED = %d, want 0", n)
	}
}

func TestConsoleWriteChunks(t *testing.T) {
	out := &lockedBuffer{}
	s := NewSystem(Config{ConsoleChunk: 16}, Devices{Console: out})
	var r recorder
	_ = s.Subscribe(abi.DriverConsole, abi.ConsoleSubWrite, r.upcall, 0)

	payload := []byte("0123456789abcdefghijklmnopqrstuvwxyzABCD")
	_ = s.Allow(abi.DriverConsole, abi.ConsoleAllowWrite, payload)
	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdWrite, uint(len(payload)), 0); err != nil {
		t.Fatalf("write error = %v", err)
	}

	yieldN(t, s, 3)
	got := r.got()
	want := []call{{16, 0}, {16, 0}, {8, 0}}
	if len(got) != len(want) {
		t.Fatalf("upcalls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("upcalls = %v, want %v", got, want)
		}
	}
	if out.String() != string(payload) {
		t.Fatalf("output = %q, want %q", out.String(), payload)
	}

	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdWrite, 2, 0); err != nil {
		t.Fatalf("write after completion error = %v", err)
	}
	yieldN(t, s, 1)
}

func TestConsoleWritePreconditions(t *testing.T) {
	block := make(chan struct{})
	s := NewSystem(DefaultConfig(), Devices{Console: blockingWriter(block)})
	_ = s.Subscribe(abi.DriverConsole, abi.ConsoleSubWrite, func(_, _, _, _ uint) {}, 0)

	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdWrite, 1, 0); !errors.Is(err, abi.ErrNoMem) {
		t.Fatalf("write without allow error = %v, want ErrNoMem", err)
	}
	_ = s.Allow(abi.DriverConsole, abi.ConsoleAllowWrite, []byte("abc"))
	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdWrite, 4, 0); !errors.Is(err, abi.ErrSize) {
		t.Fatalf("write too long error = %v, want ErrSize", err)
	}
	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdWrite, 3, 0); err != nil {
		t.Fatalf("write error = %v", err)
	}
	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdWrite, 3, 0); !errors.Is(err, abi.ErrBusy) {
		t.Fatalf("write while busy error = %v, want ErrBusy", err)
	}
	close(block)
	yieldN(t, s, 1)
}

type blockingWriter chan struct{}

func (b blockingWriter) Write(p []byte) (int, error) {
	<-b
	return len(p), nil
}

func TestConsoleWriteFailure(t *testing.T) {
	out := &lockedBuffer{err: errors.New("uart gone")}
	log := &lineLog{}
	s := NewSystem(DefaultConfig(), Devices{Console: out, Log: log})
	var r recorder
	_ = s.Subscribe(abi.DriverConsole, abi.ConsoleSubWrite, r.upcall, 0)
	_ = s.Allow(abi.DriverConsole, abi.ConsoleAllowWrite, []byte("abc"))
	_, _ = s.Command(abi.DriverConsole, abi.ConsoleCmdWrite, 3, 0)

	yieldN(t, s, 1)
	got := r.got()
	if len(got) != 1 || !errors.Is(abi.StatusError(got[0].a1), abi.ErrFail) {
		t.Fatalf("upcalls = %v, want one failure", got)
	}
}

func TestConsoleReadPartialDelivery(t *testing.T) {
	s := NewSystem(DefaultConfig(), Devices{})
	var r recorder
	_ = s.Subscribe(abi.DriverConsole, abi.ConsoleSubRead, r.upcall, 0)

	s.ConsoleInput([]byte("ab"))
	buf := make([]byte, 5)
	_ = s.Allow(abi.DriverConsole, abi.ConsoleAllowRead, buf)
	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdRead, 5, 0); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdRead, 5, 0); !errors.Is(err, abi.ErrBusy) {
		t.Fatalf("second read error = %v, want ErrBusy", err)
	}
	s.ConsoleInput([]byte("cdefg"))

	yieldN(t, s, 2)
	got := r.got()
	if len(got) != 2 || got[0] != (call{2, 0}) || got[1] != (call{3, 0}) {
		t.Fatalf("upcalls = %v, want [{2 0} {3 0}]", got)
	}
	if string(buf) != "abcde" {
		t.Fatalf("buffer = %q, want %q", buf, "abcde")
	}
	if s.Buffered() != 2 {
		t.Fatalf("Buffered() = %d, want 2", s.Buffered())
	}
}

func TestConsoleReadAbortAcknowledges(t *testing.T) {
	s := NewSystem(DefaultConfig(), Devices{})
	var r recorder
	_ = s.Subscribe(abi.DriverConsole, abi.ConsoleSubRead, r.upcall, 0)
	_ = s.Allow(abi.DriverConsole, abi.ConsoleAllowRead, make([]byte, 5))

	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdReadAbort, 0, 0); !errors.Is(err, abi.ErrAlready) {
		t.Fatalf("abort while idle error = %v, want ErrAlready", err)
	}
	_, _ = s.Command(abi.DriverConsole, abi.ConsoleCmdRead, 5, 0)
	if _, err := s.Command(abi.DriverConsole, abi.ConsoleCmdReadAbort, 0, 0); err != nil {
		t.Fatalf("abort error = %v", err)
	}
	yieldN(t, s, 1)
	if got := r.got(); len(got) != 1 || got[0] != (call{0, 0}) {
		t.Fatalf("upcalls = %v, want [{0 0}]", got)
	}

	s.ConsoleInput([]byte("x"))
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d after abort, want 0", s.Pending())
	}
}

func TestEventWithoutSubscriberIsLogged(t *testing.T) {
	log := &lineLog{}
	s := NewSystem(DefaultConfig(), Devices{Log: log})
	_, _ = s.Command(abi.DriverButton, abi.ButtonCmdEnableIRQ, 0, 0)
	_ = s.SetButton(0, true)

	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", s.Pending())
	}
	if len(log.lines) != 1 {
		t.Fatalf("log = %q, want one line", log.lines)
	}
}

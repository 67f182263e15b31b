// Package app wires a HAL to the simulated kernel and runs the demo application on it.
//
// The returned step function runs once per frontend frame. It moves keyboard text and
// button pin levels into the kernel, applies scripted stimuli and redraws the
// framebuffer console.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"tock/demo"
	"tock/hal"
	"tock/internal/buildinfo"
	"tock/internal/config"
	"tock/internal/term"
	"tock/kernel"
)

// ErrExited is returned by the step function once the application has finished.
var ErrExited = errors.New("app: exited")

type board struct {
	h   hal.HAL
	log hal.Logger
	sys *kernel.System
	app *demo.App
	con *term.Console

	buttons []hal.GPIOPin
	levels  []bool

	script []config.Stimulus
	next   int
	freq   uint32

	done     chan error
	panics   chan panicInfo
	finished bool
	err      error
}

// New starts the board described by cfg on h and returns its step function.
func New(h hal.HAL, cfg *config.Config) func() error {
	b := newBoard(context.Background(), h, cfg)
	return b.step
}

// Run starts the board with the default configuration and steps it forever
// (bare-metal entrypoint).
func Run(h hal.HAL) {
	step := New(h, config.Default())
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	for range t.C {
		if err := step(); err != nil {
			if l := h.Logger(); l != nil && !errors.Is(err, ErrExited) {
				l.WriteLineString(err.Error())
			}
			select {}
		}
	}
}

func newBoard(ctx context.Context, h hal.HAL, cfg *config.Config) *board {
	if cfg == nil {
		cfg = config.Default()
	}
	b := &board{
		h:      h,
		log:    h.Logger(),
		script: cfg.Script,
		done:   make(chan error, 1),
		panics: make(chan panicInfo, 1),
	}

	kcfg := kernel.Config{
		AlarmFrequency: cfg.Kernel.AlarmFrequency,
		ConsoleChunk:   cfg.Kernel.ConsoleChunk,
		Buttons:        cfg.Kernel.Buttons,
	}
	ht := h.Time()
	if ht != nil && ht.TickHz() != 0 && ht.TickHz() != kcfg.AlarmFrequency {
		b.logf("app: alarm frequency %d Hz follows board clock %d Hz", kcfg.AlarmFrequency, ht.TickHz())
		kcfg.AlarmFrequency = ht.TickHz()
	}
	b.freq = kcfg.AlarmFrequency

	if d := h.Display(); d != nil {
		b.con = term.NewConsole(d.Framebuffer())
	}
	var out io.Writer = h.Serial()
	if b.con != nil {
		out = io.MultiWriter(h.Serial(), b.con)
	}
	b.sys = kernel.NewSystem(kcfg, kernel.Devices{LED: h.LED(), Console: out, Log: b.log})

	b.buttons = hal.ButtonPins(h.GPIO())
	if len(b.buttons) > kcfg.Buttons {
		b.buttons = b.buttons[:kcfg.Buttons]
	}
	b.levels = make([]bool, len(b.buttons))

	b.logf("tock %s: alarm %d Hz, %d button(s), %d scripted stimuli",
		buildinfo.Short(), kcfg.AlarmFrequency, kcfg.Buttons, len(b.script))

	b.app = demo.New(b.sys, b.log, demo.Options{})
	go b.run(ctx)

	if ht != nil {
		if ch := ht.Ticks(); ch != nil {
			go b.forwardTicks(ctx, ch)
		}
	}
	if cfg.EchoStdin {
		go b.readSerial(h.Serial())
	}
	return b
}

func (b *board) run(ctx context.Context) {
	defer b.recoverPanic()
	b.done <- b.app.Run(ctx)
}

func (b *board) forwardTicks(ctx context.Context, ch <-chan uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case seq, ok := <-ch:
			if !ok {
				return
			}
			b.sys.TickTo(seq)
		}
	}
}

func (b *board) readSerial(r io.Reader) {
	if r == nil {
		return
	}
	var buf [64]byte
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			b.sys.ConsoleInput(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, hal.ErrNotImplemented) {
				b.logf("app: serial read: %v", err)
			}
			return
		}
	}
}

// step runs one frame on the frontend goroutine.
func (b *board) step() error {
	if b.finished {
		return b.result()
	}

	select {
	case info := <-b.panics:
		b.showPanic(info)
		b.finish(fmt.Errorf("app: panic: %v", info.value))
		return b.result()
	default:
	}

	b.pollKeyboard()
	b.pollButtons()
	b.runScript()

	select {
	case err := <-b.done:
		b.finish(err)
	default:
	}
	if b.con != nil {
		b.con.Flush()
	}
	if b.finished {
		return b.result()
	}
	return nil
}

func (b *board) finish(err error) {
	b.finished = true
	b.err = err
	if err == nil {
		steps, yields, resumes := b.app.Scheduler().Stats()
		b.logf("app: finished after %d steps, %d yields, %d resumes", steps, yields, resumes)
	}
}

func (b *board) result() error {
	if b.err != nil {
		return b.err
	}
	return ErrExited
}

// pollKeyboard moves typed text into the console receiver.
func (b *board) pollKeyboard() {
	in := b.h.Input()
	if in == nil {
		return
	}
	kbd := in.Keyboard()
	if kbd == nil {
		return
	}
	ch := kbd.Events()
	var buf []byte
	for {
		select {
		case ev := <-ch:
			if ev.Press && ev.Rune != 0 {
				buf = utf8.AppendRune(buf, ev.Rune)
			}
		default:
			if len(buf) > 0 {
				b.sys.ConsoleInput(buf)
			}
			return
		}
	}
}

// pollButtons turns BTN pin level changes into kernel button edges.
func (b *board) pollButtons() {
	for i, p := range b.buttons {
		level, err := p.Read()
		if err != nil || level == b.levels[i] {
			continue
		}
		b.levels[i] = level
		if err := b.sys.SetButton(i, level); err != nil {
			b.logf("app: button %d: %v", i, err)
		}
	}
}

// runScript applies every stimulus whose time has come on the kernel clock.
func (b *board) runScript() {
	now := b.sys.Now()
	for b.next < len(b.script) {
		s := b.script[b.next]
		if s.AtTicks(b.freq) > now {
			return
		}
		b.next++
		switch s.Type {
		case config.StimulusPress, config.StimulusRelease:
			if err := b.sys.SetButton(s.Button, s.Type == config.StimulusPress); err != nil {
				b.logf("app: script %s %d: %v", s.Type, s.Button, err)
			}
		case config.StimulusInput:
			if n := b.sys.ConsoleInput([]byte(s.Text)); n < len(s.Text) {
				b.logf("app: script input truncated to %d byte(s)", n)
			}
		}
	}
}

func (b *board) logf(format string, args ...any) {
	if b.log == nil {
		return
	}
	b.log.WriteLineString(fmt.Sprintf(format, args...))
}

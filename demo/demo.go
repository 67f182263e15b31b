// Package demo is the demonstration application: console output, a console read raced
// against a button press, an LED toggled by two presses, and a read raced against a
// button and an alarm.
//
// App is a sched.Task written as an explicit state machine. Every phase runs to its next
// suspension point and returns the condition it waits on.
package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tock/hal"
	"tock/libtock/abi"
	"tock/libtock/alarm"
	"tock/libtock/button"
	"tock/libtock/console"
	"tock/libtock/led"
	"tock/libtock/sched"
	"tock/libtock/task"
)

const readLen = 5

// Options tunes the demo.
type Options struct {
	// Timeout bounds the last read. Zero means 10s.
	Timeout time.Duration
	// Button and LED select the devices used.
	Button uint
	LED    uint
}

type phase uint8

const (
	phaseStart phase = iota
	phaseHello
	phasePrompt
	phaseArmFirst
	phaseSelectFirst
	phaseJoinFirst
	phaseLED
	phaseLEDDone
	phaseArmLast
	phaseSelectLast
	phaseJoinLast
	phaseDone
)

// App owns the drivers and the scheduler running it.
type App struct {
	opts Options
	log  hal.Logger
	s    *sched.Scheduler

	alarm  *alarm.Driver
	button *button.Driver
	reader *console.Reader
	writer *console.Writer
	led    *led.Driver

	phase    phase
	hello    int
	presses  int
	deadline uint
	readBuf  [readLen]byte
	p        console.Printer
	err      error
}

// New creates the application on k. log may be nil.
func New(k abi.Kernel, log hal.Logger, opts Options) *App {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	a := &App{
		opts:   opts,
		log:    log,
		s:      sched.New(k, log),
		alarm:  alarm.New(k),
		button: button.New(k),
		reader: console.NewReader(k),
		writer: console.NewWriter(k),
		led:    led.New(k),
	}
	a.s.AddDriver(a.alarm)
	a.s.AddDriver(a.button)
	a.s.AddDriver(a.reader)
	a.s.AddDriver(a.writer)
	a.s.AddClient(a.alarm.Client())
	a.s.AddClient(a.button.Client())
	a.s.AddClient(a.reader.Client())
	a.s.AddClient(a.writer.Client())
	a.s.SetTask(a)
	return a
}

// Run drives the application until it finishes or ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.s.Run(ctx); err != nil {
		return err
	}
	return a.err
}

// Scheduler returns the scheduler running the application.
func (a *App) Scheduler() *sched.Scheduler { return a.s }

// Done reports whether the application finished.
func (a *App) Done() bool { return a.s.Done() }

// Err returns the error that stopped the application early, if any.
func (a *App) Err() error { return a.err }

// Advance runs the application to its next suspension point.
func (a *App) Advance() sched.Cond {
	switch a.phase {
	case phaseStart:
		a.phase = phaseHello
		return a.write("\n")

	case phaseHello:
		if err := a.wrote(); err != nil {
			return a.fail(err)
		}
		if a.hello < 5 {
			a.p.Reset()
			if err := a.p.Printf("Hello world! %d \n", a.hello); err != nil {
				return a.fail(err)
			}
			a.hello++
			return a.writeBytes(a.p.Bytes())
		}
		a.phase = phasePrompt
		return a.write("Wrote 5 times\n\n")

	case phasePrompt:
		if err := a.wrote(); err != nil {
			return a.fail(err)
		}
		a.s.ReapClientMessages()
		a.phase = phaseArmFirst
		return a.write("Enter 5 characters or press button: ")

	case phaseArmFirst:
		if err := a.wrote(); err != nil {
			return a.fail(err)
		}
		a.s.ReapClientMessages()
		if err := a.reader.StartRead(readLen); err != nil {
			return a.fail(err)
		}
		if err := a.button.Subscribe(); err != nil {
			return a.fail(err)
		}
		if err := a.button.EnableInterrupt(a.opts.Button); err != nil {
			return a.fail(err)
		}
		a.phase = phaseSelectFirst
		return sched.Any(sched.Await(a.reader.Client()), a.button.Client().HasPressed)

	case phaseSelectFirst:
		writing := false
		if _, err := a.button.Client().ConsumePressed(); err == nil {
			writing = a.tryWrite("\nReceived button press\n")
			a.abortRead()
		}
		if a.consumeRead() {
			writing = a.tryWrite(a.receivedLine()) || writing
		}
		a.s.ReapClientMessages()
		a.phase = phaseJoinFirst
		return a.join(writing)

	case phaseJoinFirst:
		a.s.ReapClientMessages()
		a.phase = phaseLED
		return a.write("\nPress Button to Turn On and Off LED\n")

	case phaseLED:
		a.writer.Client().Reap()
		if _, err := a.button.Client().ConsumePressed(); err == nil {
			switch a.presses {
			case 0:
				if err := a.led.On(a.opts.LED); err != nil {
					return a.fail(err)
				}
				a.tryWrite("Turned LED On\n")
				a.presses++
			case 1:
				if err := a.led.Off(a.opts.LED); err != nil {
					return a.fail(err)
				}
				a.tryWrite("Turned LED Off\n")
				a.presses++
			}
		}
		a.s.ReapClientMessages()
		if a.presses < 2 {
			return a.ledWait()
		}
		a.phase = phaseLEDDone
		if a.writer.IsOperationActive() {
			return sched.Await(a.writer.Client())
		}
		return sched.Now()

	case phaseLEDDone:
		if err := a.wrote(); err != nil {
			return a.fail(err)
		}
		a.s.ReapClientMessages()
		a.phase = phaseArmLast
		return a.write("\nEnter 5 characters or press button or wait for 10 seconds:")

	case phaseArmLast:
		if err := a.wrote(); err != nil {
			return a.fail(err)
		}
		a.s.ReapClientMessages()
		a.readBuf = [readLen]byte{}
		if err := a.reader.StartRead(readLen); err != nil {
			return a.fail(err)
		}
		deadline, err := a.alarm.ArmAfter(a.opts.Timeout)
		if err != nil {
			return a.fail(err)
		}
		a.deadline = deadline
		a.phase = phaseSelectLast
		return sched.Any(
			sched.Await(a.alarm.Client()),
			sched.Await(a.reader.Client()),
			a.button.Client().HasPressed,
		)

	case phaseSelectLast:
		writing := false
		if _, err := a.alarm.Client().Consume(); err == nil {
			writing = a.tryWrite("\nAlarm expired\n")
			a.abortRead()
		}
		if _, err := a.button.Client().ConsumePressed(); err == nil {
			writing = a.tryWrite("\nReceived button press\n") || writing
			a.abortRead()
			a.disarm()
		}
		if a.consumeRead() {
			writing = a.tryWrite(a.receivedLine()) || writing
			a.disarm()
		}
		a.s.ReapClientMessages()
		a.phase = phaseJoinLast
		return a.join(writing)

	case phaseJoinLast:
		a.s.ReapClientMessages()
		a.phase = phaseDone
		return nil
	}
	return nil
}

// write starts a write and waits for its completion. A failed start ends the app.
func (a *App) write(s string) sched.Cond {
	if err := a.writer.WriteString(s); err != nil {
		return a.fail(err)
	}
	return sched.Await(a.writer.Client())
}

func (a *App) writeBytes(p []byte) sched.Cond {
	if err := a.writer.StartWrite(p); err != nil {
		return a.fail(err)
	}
	return sched.Await(a.writer.Client())
}

// wrote consumes the result of an awaited write. No result is not an error.
func (a *App) wrote() error {
	if _, err := a.writer.Client().Consume(); err != nil && !errors.Is(err, task.ErrNotFound) {
		return err
	}
	return nil
}

// tryWrite starts a write whose failure is tolerated, as when a second result in the
// same select finds the writer busy.
func (a *App) tryWrite(s string) bool {
	if err := a.writer.WriteString(s); err != nil {
		a.logf("demo: write %q: %v", s, err)
		return false
	}
	return true
}

// abortRead cancels the read. A read that already completed in the kernel cannot be
// aborted; its result arrives as usual.
func (a *App) abortRead() {
	if err := a.reader.Abort(); err != nil && !errors.Is(err, abi.ErrInvalid) {
		a.logf("demo: abort read: %v", err)
	}
}

func (a *App) disarm() {
	if err := a.alarm.Disarm(a.deadline); err != nil {
		a.logf("demo: %v", err)
	}
}

func (a *App) consumeRead() bool {
	if !a.reader.Client().HasMessage() {
		return false
	}
	if err := a.reader.Client().Consume(a.readBuf[:]); err != nil {
		a.logf("demo: read: %v", err)
		return false
	}
	return true
}

func (a *App) receivedLine() string {
	return fmt.Sprintf("\nReceived: %s \n", a.readBuf[:])
}

// join waits for the read to settle and for the reply write, if one was started.
func (a *App) join(writing bool) sched.Cond {
	idle := sched.Idle(a.reader)
	if !writing {
		return idle
	}
	return sched.All(idle, sched.Await(a.writer.Client()))
}

// ledWait waits for a write to finish or for a press while no write is in flight, so
// the reply to a press always finds the writer free.
func (a *App) ledWait() sched.Cond {
	return sched.Any(
		sched.Await(a.writer.Client()),
		sched.All(a.button.Client().HasPressed, sched.Idle(a.writer)),
	)
}

func (a *App) fail(err error) sched.Cond {
	a.err = fmt.Errorf("demo: %w", err)
	a.phase = phaseDone
	a.logf("%v", a.err)
	return nil
}

func (a *App) logf(format string, args ...any) {
	if a.log == nil {
		return
	}
	a.log.WriteLineString(fmt.Sprintf(format, args...))
}

// Package kernel simulates the microkernel behind the driver ABI: a driver table, a
// fixed upcall queue, shared buffers and the alarm, console, LED and button devices.
//
// Device stimuli (ticks, button levels, console input, transmit progress) may arrive on
// any goroutine; they only enqueue upcalls. Upcalls run on the goroutine calling Yield.
package kernel

import (
	"context"
	"fmt"
	"io"
	"sync"

	"tock/hal"
	"tock/libtock/abi"
)

// Config sizes the simulated devices.
type Config struct {
	// AlarmFrequency is the alarm tick rate in Hz reported to processes.
	AlarmFrequency uint32
	// ConsoleChunk is the largest piece the console transmits per write upcall.
	ConsoleChunk int
	// Buttons is the number of button lines.
	Buttons int
}

// DefaultConfig matches a 1 kHz tick board with one button.
func DefaultConfig() Config {
	return Config{AlarmFrequency: 1000, ConsoleChunk: 16, Buttons: 1}
}

// Devices are the board resources the kernel drives. Any field may be nil.
type Devices struct {
	LED     hal.LED
	Console io.Writer
	Log     hal.Logger
}

type slot struct {
	driver abi.DriverNum
	num    uint32
}

type subscription struct {
	fn       abi.Upcall
	userdata uint
}

var subscribeSlots = map[slot]bool{
	{abi.DriverAlarm, abi.AlarmSubCallback}:   true,
	{abi.DriverConsole, abi.ConsoleSubWrite}:  true,
	{abi.DriverConsole, abi.ConsoleSubRead}:   true,
	{abi.DriverButton, abi.ButtonSubCallback}: true,
}

var allowSlots = map[slot]bool{
	{abi.DriverConsole, abi.ConsoleAllowWrite}: true,
	{abi.DriverConsole, abi.ConsoleAllowRead}:  true,
}

type alarmState struct {
	now        uint64
	armed      bool
	expiration uint64
}

type buttonState struct {
	level bool
	irq   bool
}

type ledState struct {
	on bool
}

// System is the simulated kernel. It implements abi.Kernel.
type System struct {
	cfg Config
	dev Devices
	q   *upcallQueue

	mu      sync.Mutex
	subs    map[slot]subscription
	allows  map[slot][]byte
	alarm   alarmState
	buttons []buttonState
	led     ledState
	tx      txState
	rx      rxState
}

var _ abi.Kernel = (*System)(nil)

// NewSystem creates a kernel instance. A zero AlarmFrequency or ConsoleChunk takes the
// DefaultConfig value.
func NewSystem(cfg Config, dev Devices) *System {
	def := DefaultConfig()
	if cfg.AlarmFrequency == 0 {
		cfg.AlarmFrequency = def.AlarmFrequency
	}
	if cfg.ConsoleChunk <= 0 {
		cfg.ConsoleChunk = def.ConsoleChunk
	}
	if cfg.Buttons < 0 {
		cfg.Buttons = 0
	}
	if dev.Console == nil {
		dev.Console = io.Discard
	}
	return &System{
		cfg:     cfg,
		dev:     dev,
		q:       newUpcallQueue(),
		subs:    make(map[slot]subscription),
		allows:  make(map[slot][]byte),
		buttons: make([]buttonState, cfg.Buttons),
	}
}

// Command dispatches a driver command.
func (s *System) Command(driver abi.DriverNum, cmd uint32, arg0, arg1 uint) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch driver {
	case abi.DriverAlarm:
		return s.alarmCommand(cmd, arg0)
	case abi.DriverConsole:
		return s.consoleCommand(cmd, arg0)
	case abi.DriverLED:
		return s.ledCommand(cmd, arg0)
	case abi.DriverButton:
		return s.buttonCommand(cmd, arg0)
	default:
		return 0, abi.ErrNoDevice
	}
}

// Subscribe stores fn for the driver's subscribe slot. A nil fn unsubscribes.
func (s *System) Subscribe(driver abi.DriverNum, sub uint32, fn abi.Upcall, userdata uint) error {
	if !knownDriver(driver) {
		return abi.ErrNoDevice
	}
	key := slot{driver, sub}
	if !subscribeSlots[key] {
		return abi.ErrNoSupport
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.subs, key)
		return nil
	}
	s.subs[key] = subscription{fn: fn, userdata: userdata}
	return nil
}

// Allow shares buf with the driver. Capacity limits are the process's concern.
func (s *System) Allow(driver abi.DriverNum, allow uint32, buf []byte) error {
	if !knownDriver(driver) {
		return abi.ErrNoDevice
	}
	key := slot{driver, allow}
	if !allowSlots[key] {
		return abi.ErrNoSupport
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.allows[key] = buf
	return nil
}

// Yield blocks until an upcall is queued, then runs exactly one on the caller's
// goroutine.
func (s *System) Yield(ctx context.Context) error {
	for {
		if p, ok := s.q.pop(); ok {
			if p.fn != nil {
				p.fn(p.arg0, p.arg1, p.arg2, p.userdata)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.q.ready:
		}
	}
}

// Pending returns the number of queued upcalls.
func (s *System) Pending() int { return s.q.len() }

// Dropped returns the number of upcalls lost to a full queue.
func (s *System) Dropped() uint32 {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	return s.q.dropped
}

// Frequency returns the alarm tick rate.
func (s *System) Frequency() uint32 { return s.cfg.AlarmFrequency }

func knownDriver(d abi.DriverNum) bool {
	switch d {
	case abi.DriverAlarm, abi.DriverConsole, abi.DriverLED, abi.DriverButton:
		return true
	}
	return false
}

// schedule queues an upcall for the current subscriber. Events without a subscriber
// are discarded. s.mu must be held.
func (s *System) schedule(driver abi.DriverNum, sub uint32, arg0, arg1, arg2 uint) {
	h, ok := s.subs[slot{driver, sub}]
	if !ok {
		s.logf("kernel: driver %d sub %d: no subscriber, event dropped", driver, sub)
		return
	}
	dropped := s.q.push(pending{
		fn:       h.fn,
		driver:   driver,
		sub:      sub,
		arg0:     arg0,
		arg1:     arg1,
		arg2:     arg2,
		userdata: h.userdata,
	})
	if dropped {
		s.logf("kernel: upcall queue full, oldest dropped")
	}
}

func (s *System) logf(format string, args ...any) {
	if s.dev.Log == nil {
		return
	}
	s.dev.Log.WriteLineString(fmt.Sprintf(format, args...))
}

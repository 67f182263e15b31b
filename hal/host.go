//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig controls the simulated board.
type HostConfig struct {
	// TickHz is the base tick rate. Zero means 1000.
	TickHz uint32
	// Buttons is the number of BTN pins. Zero means 1.
	Buttons int
	// Stdin feeds the serial receiver from os.Stdin.
	Stdin bool
}

type hostHAL struct {
	logger  *hostLogger
	led     *hostLED
	gpio    GPIO
	buttons []*virtualPin
	fb      *hostFramebuffer
	kbd     *hostKeyboard
	t       *hostTime
	serial  *hostSerial
}

// New returns a host HAL implementation with one button and stdin attached.
func New() HAL {
	return newHost(HostConfig{Stdin: true})
}

func newHost(cfg HostConfig) *hostHAL {
	if cfg.TickHz == 0 {
		cfg.TickHz = 1000
	}
	if cfg.Buttons <= 0 {
		cfg.Buttons = 1
	}

	logger := &hostLogger{w: os.Stdout}
	led := &hostLED{logger: logger}
	pins := []GPIOPin{newLEDPin("LED", led)}
	buttons := make([]*virtualPin, 0, cfg.Buttons)
	for i := 0; i < cfg.Buttons; i++ {
		p := newVirtualPin(fmt.Sprintf("%s%d", ButtonPinPrefix, i), GPIOCapInput|GPIOCapPullUp|GPIOCapPullDown)
		buttons = append(buttons, p)
		pins = append(pins, p)
	}

	serial := &hostSerial{w: os.Stdout}
	if cfg.Stdin {
		serial.r = os.Stdin
	}

	h := &hostHAL{
		logger:  logger,
		led:     led,
		gpio:    newVirtualGPIO(pins),
		buttons: buttons,
		fb:      newHostFramebuffer(320, 240),
		kbd:     newHostKeyboard(),
		t:       newHostTime(cfg.TickHz),
		serial:  serial,
	}
	h.kbd.button = h.setButton
	return h
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }

// setButton drives a BTN pin from a frontend key.
func (h *hostHAL) setButton(n int, pressed bool) {
	if n < 0 || n >= len(h.buttons) {
		return
	}
	h.buttons[n].drive(pressed)
}

func (h *hostHAL) buttonLevels() []bool {
	out := make([]bool, len(h.buttons))
	for i, p := range h.buttons {
		out[i], _ = p.Read()
	}
	return out
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) setOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = w
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	l.on = true
	l.mu.Unlock()
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.mu.Lock()
	l.on = false
	l.mu.Unlock()
	l.logger.WriteLineString("led: LOW")
}

func (l *hostLED) isOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

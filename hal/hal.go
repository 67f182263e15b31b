package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeyF1
	KeyF2
	KeyF3
	KeyF4
)

// ButtonKey returns the button index bound to a function key.
func ButtonKey(code KeyCode) (int, bool) {
	if code >= KeyF1 && code <= KeyF4 {
		return int(code - KeyF1), true
	}
	return 0, false
}

// KeyEvent is a keyboard event. Text input carries Rune with Code KeyUnknown.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Serial is the console byte stream.
//
// Read blocks until input is available; implementations without a receiver return
// ErrNotImplemented.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined and reported by TickHz.
type Time interface {
	Ticks() <-chan uint64
	TickHz() uint32
}

// HAL provides the only contact point between the simulated kernel and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	GPIO() GPIO
	Serial() Serial
	Time() Time
	Display() Display
	Input() Input
}

// Button pin names. Boards expose buttons as input pins named BTN0, BTN1, ...
const ButtonPinPrefix = "BTN"

// Package term renders console output on a hal.Framebuffer with a VT100 style text
// terminal.
package term

import (
	"sync"

	"tock/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	fontHeight = 10
	fontOffset = 6
	maxPending = 4096
)

// Console collects bytes from any goroutine and draws them on Flush. Only Flush touches
// the framebuffer, so it must run on the goroutine that presents frames.
type Console struct {
	fb hal.Framebuffer
	d  *fbDisplay
	t  *tinyterm.Terminal

	mu      sync.Mutex
	pending []byte
	dropped int
}

// NewConsole returns a console drawing on fb. It returns nil when fb cannot be drawn on.
func NewConsole(fb hal.Framebuffer) *Console {
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 || fb.Buffer() == nil {
		return nil
	}
	c := &Console{fb: fb, d: newFBDisplay(fb)}
	c.Reset()
	return c
}

// Reset clears the screen, drops queued text and restarts the terminal at the top.
func (c *Console) Reset() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	c.t = tinyterm.NewTerminal(c.d)
	c.t.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        fontHeight,
		FontOffset:        fontOffset,
		UseSoftwareScroll: true,
	})
	c.fb.ClearRGB(0, 0, 0)
	_ = c.fb.Present()
}

// Write queues p for the next Flush. Bytes beyond an internal limit are counted and
// dropped; Write never fails.
func (c *Console) Write(p []byte) (int, error) {
	n := len(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	room := maxPending - len(c.pending)
	if room < len(p) {
		c.dropped += len(p) - max(room, 0)
		p = p[:max(room, 0)]
	}
	c.pending = append(c.pending, p...)
	return n, nil
}

// Flush draws queued bytes and presents the frame if anything changed.
func (c *Console) Flush() {
	c.mu.Lock()
	data := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(data) == 0 {
		return
	}
	_, _ = c.t.Write(data)
	c.t.Display()
}

// Dropped returns the number of bytes lost because Flush fell behind.
func (c *Console) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

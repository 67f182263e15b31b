//go:build tinygo && baremetal

package hal

// panelless stands in for the display on boards without a panel. It has no pixel
// buffer, so framebuffer consumers skip it.
type panelless struct {
	w, h int
}

func (f *panelless) Width() int             { return f.w }
func (f *panelless) Height() int            { return f.h }
func (f *panelless) Format() PixelFormat    { return PixelFormatRGB565 }
func (f *panelless) StrideBytes() int       { return f.w * 2 }
func (f *panelless) Buffer() []byte         { return nil }
func (f *panelless) ClearRGB(r, g, b uint8) {}
func (f *panelless) Present() error         { return ErrNotImplemented }

// noKeys is a keyboard that never produces events. Console input arrives on the UART.
type noKeys struct{}

func (noKeys) Events() <-chan KeyEvent { return nil }

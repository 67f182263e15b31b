//go:build !tinygo && cgo

package hal

import (
	"image"
	"image/color"

	"tock/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

const statusHeight = 12

var (
	ledOnColor  = color.RGBA{R: 0x20, G: 0xE0, B: 0x40, A: 0xFF}
	ledOffColor = color.RGBA{R: 0x20, G: 0x30, B: 0x20, A: 0xFF}
	btnOnColor  = color.RGBA{R: 0xF0, G: 0xC0, B: 0x20, A: 0xFF}
	btnOffColor = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF}
)

// WindowConfig controls the desktop window runner.
type WindowConfig struct {
	Host  HostConfig
	Scale int
}

// RunWindow starts a desktop window that displays the framebuffer, an LED indicator and one
// indicator per button. F1-F4 drive the buttons; typed text goes to the keyboard stream.
// It blocks until the window closes or step fails.
func RunWindow(newApp func(HAL) func() error, cfg WindowConfig) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	h := newHost(cfg.Host)
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle("tock (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*cfg.Scale, (h.fb.height+statusHeight)*cfg.Scale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h       *hostHAL
	img     *image.RGBA
	fbImg   *ebiten.Image
	lamp    *ebiten.Image
	scratch []byte
	frame   uint64
	step    func() error
}

func (g *hostGame) Update() error {
	g.h.kbd.poll()
	g.h.t.step(1)
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
		g.lamp = ebiten.NewImage(statusHeight-4, statusHeight-4)
		g.frame = 0
	}

	if frame, ok := fb.snapshotRGB565(g.scratch, g.frame); ok {
		g.frame = frame
		src := g.scratch
		dst := g.img.Pix
		for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
			r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
			j := (i / 2) * 4
			dst[j+0] = r
			dst[j+1] = gg
			dst[j+2] = b
			dst[j+3] = 0xFF
		}
		g.fbImg.WritePixels(g.img.Pix)
	}
	screen.DrawImage(g.fbImg, nil)

	y := float64(fb.height + 2)
	x := 2.0
	ledColor := ledOffColor
	if g.h.led.isOn() {
		ledColor = ledOnColor
	}
	g.drawLamp(screen, x, y, ledColor)
	x += 2 * statusHeight
	for _, pressed := range g.h.buttonLevels() {
		c := btnOffColor
		if pressed {
			c = btnOnColor
		}
		g.drawLamp(screen, x, y, c)
		x += statusHeight
	}
}

func (g *hostGame) drawLamp(screen *ebiten.Image, x, y float64, c color.Color) {
	g.lamp.Fill(c)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(x, y)
	screen.DrawImage(g.lamp, op)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height + statusHeight
}

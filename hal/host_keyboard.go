//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type hostKeyboard struct {
	ch     chan KeyEvent
	button func(n int, pressed bool)
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

func (k *hostKeyboard) emit(ev KeyEvent) {
	select {
	case k.ch <- ev:
	default:
	}
}

var buttonKeys = [...]struct {
	key  ebiten.Key
	code KeyCode
}{
	{ebiten.KeyF1, KeyF1},
	{ebiten.KeyF2, KeyF2},
	{ebiten.KeyF3, KeyF3},
	{ebiten.KeyF4, KeyF4},
}

// key routes function keys to the button pins and everything else to Events.
func (k *hostKeyboard) key(code KeyCode, press bool) {
	if n, ok := ButtonKey(code); ok && k.button != nil {
		k.button(n, press)
		return
	}
	k.emit(KeyEvent{Code: code, Press: press})
}

// poll forwards typed text as runes and reports function key edges. Enter and
// Backspace become '\n' and DEL so the console sees what a serial terminal would send.
func (k *hostKeyboard) poll() {
	for _, r := range ebiten.AppendInputChars(nil) {
		k.emit(KeyEvent{Press: true, Rune: r})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		k.emit(KeyEvent{Code: KeyEnter, Press: true, Rune: '\n'})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		k.emit(KeyEvent{Code: KeyBackspace, Press: true, Rune: 0x7f})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		k.emit(KeyEvent{Code: KeyEscape, Press: true})
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		k.emit(KeyEvent{Press: true, Rune: 0x03})
	}

	for _, bk := range buttonKeys {
		if inpututil.IsKeyJustPressed(bk.key) {
			k.key(bk.code, true)
		}
		if inpututil.IsKeyJustReleased(bk.key) {
			k.key(bk.code, false)
		}
	}
}

//go:build !tinygo && !cgo

package hal

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

// key routes function keys to the button pins and everything else to Events.
func (k *hostKeyboard) key(code KeyCode, press bool) {
	if n, ok := ButtonKey(code); ok && k.button != nil {
		k.button(n, press)
		return
	}
	k.emit(KeyEvent{Code: code, Press: press})
}

func (k *hostKeyboard) poll() {
	// No keyboard polling without the window backend.
}

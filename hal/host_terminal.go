//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
)

// Terminals report key presses only, so a function key holds its button for this many
// frames before releasing it.
const termButtonHold = 3

// TerminalConfig controls the terminal runner.
type TerminalConfig struct {
	Hz   int
	Host HostConfig
}

// RunTerminal runs the board inside a tcell screen: serial output fills the console pane,
// the bottom row shows the LED, buttons and the last log line. Typed text is serial input,
// F1-F4 press the buttons and Esc or Ctrl-C quits.
func RunTerminal(ctx context.Context, newApp func(HAL) func() error, cfg TerminalConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid terminal hz: %d", cfg.Hz)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: init: %w", err)
	}
	defer screen.Fini()

	h := newHost(cfg.Host)
	console := newTextPane(256)
	logs := newTextPane(16)
	h.serial.setOutput(console)
	h.logger.setOutput(logs)
	step := newApp(h)

	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	tr := &termRunner{h: h, screen: screen, console: console, logs: logs, held: make([]int, len(h.buttons))}
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if quit := tr.handle(ev); quit {
				return nil
			}
		case <-t.C:
			tr.release()
			h.t.step(1)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tr.draw()
		}
	}
}

type termRunner struct {
	h       *hostHAL
	screen  tcell.Screen
	console *textPane
	logs    *textPane
	held    []int
}

func (r *termRunner) handle(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventResize:
		r.screen.Sync()
	case *tcell.EventKey:
		switch e.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRune:
			r.h.kbd.emit(KeyEvent{Press: true, Rune: e.Rune()})
		case tcell.KeyEnter:
			r.h.kbd.emit(KeyEvent{Code: KeyEnter, Press: true, Rune: '\n'})
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			r.h.kbd.emit(KeyEvent{Code: KeyBackspace, Press: true, Rune: 0x7f})
		case tcell.KeyF1, tcell.KeyF2, tcell.KeyF3, tcell.KeyF4:
			n := int(e.Key() - tcell.KeyF1)
			if n < len(r.held) {
				r.h.setButton(n, true)
				r.held[n] = termButtonHold
			}
		}
	}
	return false
}

func (r *termRunner) release() {
	for n, left := range r.held {
		if left == 0 {
			continue
		}
		r.held[n] = left - 1
		if r.held[n] == 0 {
			r.h.setButton(n, false)
		}
	}
}

func (r *termRunner) draw() {
	s := r.screen
	s.Clear()
	w, h := s.Size()
	if h < 2 || w < 1 {
		s.Show()
		return
	}

	lines := r.console.tail(h - 1)
	for y, line := range lines {
		putString(s, 0, y, w, line, tcell.StyleDefault)
	}
	if n := len(lines); n > 0 {
		s.ShowCursor(min(len(lines[n-1]), w-1), n-1)
	}

	status := tcell.StyleDefault.Reverse(true)
	for x := 0; x < w; x++ {
		s.SetContent(x, h-1, ' ', nil, status)
	}
	led := "LED[ ]"
	if r.h.led.isOn() {
		led = "LED[*]"
	}
	line := led
	for i, pressed := range r.h.buttonLevels() {
		mark := ' '
		if pressed {
			mark = '*'
		}
		line += fmt.Sprintf(" F%d[%c]", i+1, mark)
	}
	line += "  esc quits"
	if last := r.logs.last(); last != "" {
		line += "  | " + last
	}
	putString(s, 0, h-1, w, line, status)
	s.Show()
}

func putString(s tcell.Screen, x, y, w int, str string, style tcell.Style) {
	for _, c := range str {
		if x >= w {
			return
		}
		s.SetContent(x, y, c, nil, style)
		x++
	}
}

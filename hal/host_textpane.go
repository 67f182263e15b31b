//go:build !tinygo

package hal

import "sync"

// textPane collects written bytes as lines for a text frontend. It keeps at most max
// complete lines plus the line being written.
type textPane struct {
	mu    sync.Mutex
	max   int
	lines []string
	cur   []byte
}

func newTextPane(max int) *textPane {
	if max <= 0 {
		max = 1
	}
	return &textPane{max: max}
}

func (p *textPane) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range b {
		switch c {
		case '\n':
			p.lines = append(p.lines, string(p.cur))
			p.cur = p.cur[:0]
			if len(p.lines) > p.max {
				p.lines = p.lines[len(p.lines)-p.max:]
			}
		case '\r':
		default:
			p.cur = append(p.cur, c)
		}
	}
	return len(b), nil
}

// tail returns the last n lines, the partial line last.
func (p *textPane) tail(n int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	all := append(append([]string(nil), p.lines...), string(p.cur))
	if n <= 0 {
		return nil
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// last returns the most recent complete line.
func (p *textPane) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.lines) == 0 {
		return ""
	}
	return p.lines[len(p.lines)-1]
}

package app

import (
	"fmt"
	"runtime/debug"
	"strings"
)

type panicInfo struct {
	value any
	stack []byte
}

// recoverPanic turns a panic on the application goroutine into a panic report for the
// next frame.
func (b *board) recoverPanic() {
	v := recover()
	if v == nil {
		return
	}
	b.panics <- panicInfo{value: v, stack: debug.Stack()}
}

// showPanic logs the panic and replaces the framebuffer console with it.
func (b *board) showPanic(info panicInfo) {
	lines := panicLines(info)
	for _, l := range lines {
		b.logf("%s", l)
	}
	if b.con == nil {
		return
	}
	b.con.Reset()
	for _, l := range lines {
		_, _ = b.con.Write([]byte(l + "\n"))
	}
	b.con.Flush()
}

func panicLines(info panicInfo) []string {
	lines := []string{
		"tock panic:",
		fmt.Sprintf("panic: %v", info.value),
	}
	if len(info.stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, strings.ReplaceAll(line, "\t", "  "))
	}
	return lines
}

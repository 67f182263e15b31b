package kernel

import (
	"tock/libtock/abi"
)

const rxCapacity = 256

type txState struct {
	busy bool
}

type rxState struct {
	fifo [rxCapacity]byte
	n    int

	active bool
	dst    []byte
	got    int
}

func (s *System) consoleCommand(cmd uint32, arg0 uint) (uint, error) {
	switch cmd {
	case abi.ConsoleCmdWrite:
		return 0, s.startWrite(arg0)
	case abi.ConsoleCmdRead:
		return 0, s.startRead(arg0)
	case abi.ConsoleCmdReadAbort:
		if !s.rx.active {
			return 0, abi.ErrAlready
		}
		s.rx.active = false
		s.rx.dst = nil
		s.schedule(abi.DriverConsole, abi.ConsoleSubRead, 0, 0, 0)
		return 0, nil
	default:
		return 0, abi.ErrNoSupport
	}
}

func (s *System) startWrite(n uint) error {
	if s.tx.busy {
		return abi.ErrBusy
	}
	buf, ok := s.allows[slot{abi.DriverConsole, abi.ConsoleAllowWrite}]
	if !ok {
		return abi.ErrNoMem
	}
	if n > uint(len(buf)) {
		return abi.ErrSize
	}
	if n == 0 {
		s.schedule(abi.DriverConsole, abi.ConsoleSubWrite, 0, 0, 0)
		return nil
	}

	data := make([]byte, n)
	copy(data, buf[:n])
	s.tx.busy = true
	go s.transmit(data)
	return nil
}

// transmit writes data in ConsoleChunk pieces, one upcall per piece. The last upcall
// is queued together with clearing busy so a follow-up write is accepted.
func (s *System) transmit(data []byte) {
	for len(data) > 0 {
		k := min(s.cfg.ConsoleChunk, len(data))
		_, err := s.dev.Console.Write(data[:k])
		data = data[k:]

		s.mu.Lock()
		if err != nil {
			s.tx.busy = false
			s.schedule(abi.DriverConsole, abi.ConsoleSubWrite, 0, abi.ErrFail.Word(), 0)
			s.mu.Unlock()
			s.logf("kernel: console write: %v", err)
			return
		}
		if len(data) == 0 {
			s.tx.busy = false
		}
		s.schedule(abi.DriverConsole, abi.ConsoleSubWrite, uint(k), 0, 0)
		s.mu.Unlock()
	}
}

func (s *System) startRead(n uint) error {
	if s.rx.active {
		return abi.ErrBusy
	}
	buf, ok := s.allows[slot{abi.DriverConsole, abi.ConsoleAllowRead}]
	if !ok {
		return abi.ErrNoMem
	}
	if n > uint(len(buf)) {
		return abi.ErrSize
	}
	if n == 0 {
		s.schedule(abi.DriverConsole, abi.ConsoleSubRead, 0, 0, 0)
		return nil
	}
	s.rx.active = true
	s.rx.dst = buf[:n]
	s.rx.got = 0
	s.deliver()
	return nil
}

// ConsoleInput feeds received bytes. Bytes beyond the receive buffer are dropped.
func (s *System) ConsoleInput(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := copy(s.rx.fifo[s.rx.n:], p)
	s.rx.n += k
	if k < len(p) {
		s.logf("kernel: console rx full, %d byte(s) dropped", len(p)-k)
	}
	s.deliver()
	return k
}

// deliver moves buffered input into an active read, one upcall per batch.
func (s *System) deliver() {
	if !s.rx.active || s.rx.n == 0 {
		return
	}
	k := copy(s.rx.dst[s.rx.got:], s.rx.fifo[:s.rx.n])
	copy(s.rx.fifo[:], s.rx.fifo[k:s.rx.n])
	s.rx.n -= k
	s.rx.got += k
	if s.rx.got == len(s.rx.dst) {
		s.rx.active = false
		s.rx.dst = nil
	}
	s.schedule(abi.DriverConsole, abi.ConsoleSubRead, uint(k), 0, 0)
}

// Buffered returns the number of received bytes waiting for a read.
func (s *System) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.n
}

// Reading reports whether a console read is in progress.
func (s *System) Reading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.active
}

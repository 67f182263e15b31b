package kernel

import (
	"sync"

	"tock/libtock/abi"
)

const queueSlots = 16

// pending is one scheduled upcall. The function is captured when the event is
// scheduled, as a real kernel would.
type pending struct {
	fn       abi.Upcall
	driver   abi.DriverNum
	sub      uint32
	arg0     uint
	arg1     uint
	arg2     uint
	userdata uint
}

// upcallQueue is a fixed-size multi-producer, single-consumer ring. Hardware
// goroutines push; the process pops inside Yield.
type upcallQueue struct {
	_     [0]func() // prevent accidental copying.
	mu    sync.Mutex
	head  uint32
	tail  uint32
	slots [queueSlots]pending
	ready chan struct{}

	dropped uint32
}

func newUpcallQueue() *upcallQueue {
	return &upcallQueue{ready: make(chan struct{}, 1)}
}

// push enqueues p. A full ring drops its oldest entry and reports true.
func (q *upcallQueue) push(p pending) (dropped bool) {
	q.mu.Lock()
	if q.head-q.tail >= queueSlots {
		q.tail++
		q.dropped++
		dropped = true
	}
	q.slots[q.head%queueSlots] = p
	q.head++
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return dropped
}

func (q *upcallQueue) pop() (pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tail == q.head {
		return pending{}, false
	}
	p := q.slots[q.tail%queueSlots]
	q.slots[q.tail%queueSlots] = pending{}
	q.tail++
	return p, true
}

func (q *upcallQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.head - q.tail)
}

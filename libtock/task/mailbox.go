package task

// Mailbox is a single-slot holding area.
//
// Put replaces an unconsumed value instead of blocking. That is only sound while the
// consumer drains the slot before the producer can deliver again: the scheduler runs a
// driver's task half on every step its mailbox is non-empty, and each driver keeps at most
// one kernel operation in flight.
type Mailbox[T any] struct {
	v    T
	full bool
}

// Put stores v and reports whether an unconsumed value was dropped.
func (m *Mailbox[T]) Put(v T) (dropped bool) {
	dropped = m.full
	m.v = v
	m.full = true
	return dropped
}

// Take removes and returns the stored value.
func (m *Mailbox[T]) Take() (T, bool) {
	var zero T
	if !m.full {
		return zero, false
	}
	v := m.v
	m.v = zero
	m.full = false
	return v, true
}

// Peek returns the stored value without removing it.
func (m *Mailbox[T]) Peek() (T, bool) {
	return m.v, m.full
}

// Pending reports whether a value is stored.
func (m *Mailbox[T]) Pending() bool { return m.full }

// Clear drops the stored value, if any.
func (m *Mailbox[T]) Clear() {
	var zero T
	m.v = zero
	m.full = false
}

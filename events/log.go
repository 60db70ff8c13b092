// Package events provides a bounded, append-only event log with independent
// per-consumer read cursors. It bridges the collision orchestrator (single
// producer) to any number of solver instances (consumers). A consumer that
// falls behind the retention window loses the overwritten entries; the loss
// is reported explicitly, never hidden and never fatal.
package events

// ReaderID identifies one consumer's cursor into a Log.
type ReaderID int

// Log is a fixed-capacity ring buffer of events with monotonically
// increasing sequence numbers. Appends never block and never fail; old
// entries are overwritten once capacity is exceeded.
type Log[T any] struct {
	buf     []T
	next    uint64 // sequence number of the next append
	readers []uint64
}

// NewLog returns a log retaining the last capacity events.
func NewLog[T any](capacity int) *Log[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Log[T]{buf: make([]T, capacity)}
}

// Register returns a new reader cursor positioned at the current head, so it
// sees only events appended after registration.
func (l *Log[T]) Register() ReaderID {
	l.readers = append(l.readers, l.next)
	return ReaderID(len(l.readers) - 1)
}

// Append adds an event, overwriting the oldest retained entry when full.
func (l *Log[T]) Append(v T) {
	l.buf[l.next%uint64(len(l.buf))] = v
	l.next++
}

// Len returns the total number of events ever appended.
func (l *Log[T]) Len() uint64 {
	return l.next
}

// oldest returns the sequence number of the oldest retained event.
func (l *Log[T]) oldest() uint64 {
	cap64 := uint64(len(l.buf))
	if l.next < cap64 {
		return 0
	}
	return l.next - cap64
}

// ReadLossy returns all events appended since the reader's cursor and
// advances the cursor to the head. If the cursor lagged past the retention
// window the overwritten events are skipped and their count is returned;
// the caller decides how to report the loss.
func (l *Log[T]) ReadLossy(id ReaderID) (items []T, dropped uint64) {
	start := l.readers[id]
	if oldest := l.oldest(); start < oldest {
		dropped = oldest - start
		start = oldest
	}
	for seq := start; seq < l.next; seq++ {
		items = append(items, l.buf[seq%uint64(len(l.buf))])
	}
	l.readers[id] = l.next
	return items, dropped
}

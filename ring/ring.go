// Package ring provides the bounded float32 queue connecting the producer
// goroutine to the real-time output callback. The producer side blocks
// under backpressure; the consumer side never does.
package ring

import (
	"sync"
	"sync/atomic"
	"time"
)

// backpressureTick is how long the producer sleeps between capacity checks.
const backpressureTick = 5 * time.Millisecond

// Buffer is a bounded double-ended sample queue. It is the only structure
// shared between the producer and the real-time consumer, so critical
// sections are kept O(1) or amortized O(1).
//
// The length invariant is len <= 2*capacity: Push blocks while the buffer
// is at capacity, and a drop-oldest valve bounds memory if the consumer
// stalls entirely.
type Buffer struct {
	mu   sync.Mutex
	buf  []float32
	head int // index of the next sample to pop

	capacity int
	dropped  atomic.Uint64
	underrun atomic.Uint64
}

// New returns a buffer with the given capacity in samples.
func New(capacity int) *Buffer {
	return &Buffer{
		buf:      make([]float32, 0, 2*capacity),
		capacity: capacity,
	}
}

// Capacity returns the configured capacity in samples.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Push appends samples, blocking in 5 ms ticks while the buffer is at
// capacity. The wait aborts as soon as cancelled reports true, so a
// stopping pipeline is never stuck behind a full buffer. After the commit,
// anything beyond twice the capacity is dropped oldest-first: bounded
// memory wins over sample completeness when the consumer has stalled.
// It reports whether the samples were committed.
func (b *Buffer) Push(samples []float32, cancelled func() bool) bool {
	for {
		b.mu.Lock()
		if b.length() < b.capacity {
			break
		}
		b.mu.Unlock()
		if cancelled != nil && cancelled() {
			return false
		}
		time.Sleep(backpressureTick)
	}
	// locked with room available
	b.compact()
	b.buf = append(b.buf, samples...)
	if over := b.length() - 2*b.capacity; over > 0 {
		b.head += over
		b.dropped.Add(uint64(over))
	}
	b.mu.Unlock()
	return true
}

// Pop removes and returns the oldest sample. It never blocks: on an empty
// buffer, or if the lock is contended, it reports false and the caller
// emits silence. Contention counts as an underrun.
func (b *Buffer) Pop() (float32, bool) {
	if !b.mu.TryLock() {
		b.underrun.Add(1)
		return 0, false
	}
	if b.head >= len(b.buf) {
		b.mu.Unlock()
		return 0, false
	}
	s := b.buf[b.head]
	b.head++
	b.mu.Unlock()
	return s, true
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length()
}

// Clear discards buffered samples without releasing the backing storage,
// so a reconnect does not reallocate. Called when a new connection must
// not play audio left over from the previous one.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.buf = b.buf[:0]
	b.head = 0
	b.mu.Unlock()
}

// Dropped returns the number of samples discarded by the drop-oldest valve.
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}

// Underruns returns the number of consumer pops lost to lock contention.
func (b *Buffer) Underruns() uint64 {
	return b.underrun.Load()
}

// length must be called with the lock held.
func (b *Buffer) length() int {
	return len(b.buf) - b.head
}

// compact reclaims consumed space on the producer side so the consumer
// never pays for it. Must be called with the lock held.
func (b *Buffer) compact() {
	if b.head == 0 {
		return
	}
	if b.head >= len(b.buf) {
		b.buf = b.buf[:0]
		b.head = 0
		return
	}
	if b.head > b.capacity {
		n := copy(b.buf, b.buf[b.head:])
		b.buf = b.buf[:n]
		b.head = 0
	}
}

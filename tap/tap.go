// Package tap implements a best-effort side channel for spectrum display.
// The output callback copies a decimated subset of emitted frames into a
// small bounded buffer; a slow or absent consumer loses frames instead of
// applying backpressure to the real-time path.
package tap

import "sync"

// Tap is a fixed-size ring of mono frames written by the output callback
// and read by a visualizer. Writes use a try-lock so they can never stall
// the writer; reads return a chronological copy.
type Tap struct {
	mu       sync.Mutex
	buf      []float32
	pos      int
	filled   bool
	decimate int
	skip     int
}

// New returns a tap holding size mono frames, keeping every decimate-th
// frame. decimate < 1 keeps every frame.
func New(size, decimate int) *Tap {
	if size < 1 {
		size = 1
	}
	if decimate < 1 {
		decimate = 1
	}
	return &Tap{
		buf:      make([]float32, size),
		decimate: decimate,
	}
}

// Feed downmixes interleaved samples to mono frames and copies a decimated
// subset into the ring. It never blocks: if the consumer currently holds
// the lock, the whole batch is dropped. A trailing partial frame is
// ignored.
func (t *Tap) Feed(samples []float32, channels int) {
	if channels < 1 {
		channels = 1
	}
	if !t.mu.TryLock() {
		return
	}
	for i := 0; i+channels <= len(samples); i += channels {
		if t.skip > 0 {
			t.skip--
			continue
		}
		t.skip = t.decimate - 1
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += samples[i+ch]
		}
		t.buf[t.pos] = sum / float32(channels)
		t.pos++
		if t.pos == len(t.buf) {
			t.pos = 0
			t.filled = true
		}
	}
	t.mu.Unlock()
}

// Samples returns up to n of the most recent samples in chronological
// order. The result is a copy and safe to keep.
func (t *Tap) Samples(n int) []float32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	available := t.pos
	if t.filled {
		available = len(t.buf)
	}
	if n > available {
		n = available
	}
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	start := (t.pos - n + len(t.buf)) % len(t.buf)
	for i := 0; i < n; i++ {
		out[i] = t.buf[(start+i)%len(t.buf)]
	}
	return out
}

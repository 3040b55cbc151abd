// Package mock provides pipeline components for tests: a source with a
// scriptable connect/format schedule and a deviceless output that records
// what was built.
package mock

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/pipe"
	"github.com/dudk/airwave/ring"
	"github.com/dudk/airwave/tap"
)

// ErrConnect is returned by scripted connect failures.
var ErrConnect = errors.New("mock connect failure")

// ErrBuild is returned by scripted output build failures.
var ErrBuild = errors.New("mock output build failure")

// Source is a scriptable source.Reader. Reads return silence bytes.
type Source struct {
	// FailConnects makes the first n connect attempts fail.
	FailConnects int
	// Formats is the format schedule; the source advances to the next
	// entry after every SwitchAfter successful reads.
	Formats []airwave.Format
	// SwitchAfter is the number of reads before the schedule advances.
	SwitchAfter int
	// Limit ends every connection after this many reads.
	Limit int
	// ReadErr is the error reads return once Limit is reached; io.EOF
	// when unset.
	ReadErr error
	// Chunk is the number of bytes returned per read.
	Chunk int
	// Delay is the connect retry delay reported to the pipeline.
	Delay time.Duration

	mu       sync.Mutex
	connects int
	reads    int
}

// Connect fails for the first FailConnects attempts, then succeeds.
func (s *Source) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connects <= s.FailConnects {
		return ErrConnect
	}
	return nil
}

// Read returns a chunk of silence, or the scripted error once the limit
// is reached.
func (s *Source) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Limit > 0 && s.reads >= s.Limit {
		if s.ReadErr != nil {
			return 0, s.ReadErr
		}
		return 0, io.EOF
	}
	s.reads++
	n := s.Chunk
	if n == 0 || n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = 0
	}
	return n, nil
}

// Format returns the scheduled format for the current read count.
func (s *Source) Format() airwave.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Formats) == 0 {
		return airwave.DefaultFormat()
	}
	idx := 0
	if s.SwitchAfter > 0 {
		idx = s.reads / s.SwitchAfter
	}
	if idx >= len(s.Formats) {
		idx = len(s.Formats) - 1
	}
	return s.Formats[idx]
}

// RetryDelay returns the scripted connect retry delay.
func (s *Source) RetryDelay() time.Duration {
	if s.Delay == 0 {
		return time.Millisecond
	}
	return s.Delay
}

// Close implements source.Reader.
func (s *Source) Close() error {
	return nil
}

// Connects returns the number of connect attempts so far.
func (s *Source) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// Reads returns the number of successful reads so far.
func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Output records every output stream the pipeline builds.
type Output struct {
	// FailBuilds makes the first n build attempts fail.
	FailBuilds int

	mu     sync.Mutex
	builds int
	closes int
	built  []airwave.Format
	ring   *ring.Buffer
}

// Builder returns an OutputBuilder recording into this Output.
func (o *Output) Builder() pipe.OutputBuilder {
	return func(format airwave.Format, buf *ring.Buffer, volume *airwave.Volume, vis *tap.Tap) (pipe.Output, error) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.builds++
		if o.builds <= o.FailBuilds {
			return nil, ErrBuild
		}
		o.built = append(o.built, format)
		o.ring = buf
		return &stream{output: o}, nil
	}
}

// Built returns the formats of all successfully built streams.
func (o *Output) Built() []airwave.Format {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]airwave.Format(nil), o.built...)
}

// Closes returns the number of closed streams.
func (o *Output) Closes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closes
}

// Ring returns the ring buffer handed to the most recent build.
func (o *Output) Ring() *ring.Buffer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ring
}

type stream struct {
	output *Output
}

func (s *stream) Close() error {
	s.output.mu.Lock()
	defer s.output.mu.Unlock()
	s.output.closes++
	return nil
}

// Package pipe wires source, decoder, equalizer, ring buffer and output
// device into a running pipeline. One producer goroutine per run performs
// all blocking IO, decoding and DSP; the output device pulls on its own
// real-time thread. A format change reported by the source rebuilds every
// rate-dependent stage in place of the old one.
package pipe

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/device"
	"github.com/dudk/airwave/eq"
	"github.com/dudk/airwave/log"
	"github.com/dudk/airwave/ring"
	"github.com/dudk/airwave/source"
	"github.com/dudk/airwave/tap"
)

// Ring buffer capacities per tier, in samples.
const (
	standardCapacity = 32768
	hiResCapacity    = 65536
)

const (
	// cancellationTick bounds how long any producer-side wait can outlive
	// a cleared running flag.
	cancellationTick = 5 * time.Millisecond
	// transientReadDelay is slept when a read returns no data yet.
	transientReadDelay = 5 * time.Millisecond
	// reconnectPause separates a broken connection from the next attempt.
	reconnectPause = 100 * time.Millisecond
	// rebuildRetryDelay paces output device rebuild attempts when the
	// device is busy or unavailable.
	rebuildRetryDelay = time.Second
	// readFrames is the read buffer size in frames.
	readFrames = 2048
)

// ErrInvalidState is returned if pipe method cannot be executed at this moment.
var ErrInvalidState = errors.New("invalid state")

// Output is a running output stream; the pipe only ever tears it down.
type Output interface {
	Close() error
}

// OutputBuilder builds an output stream for a format. The default builder
// opens the system device through the device package; tests substitute a
// deviceless one.
type OutputBuilder func(format airwave.Format, buf *ring.Buffer, volume *airwave.Volume, vis *tap.Tap) (Output, error)

// DeviceOutput is the default output builder.
func DeviceOutput(format airwave.Format, buf *ring.Buffer, volume *airwave.Volume, vis *tap.Tap) (Output, error) {
	stream, err := device.Open(format, buf, volume, vis)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Pipe is the handle the application holds: it owns the producer
// goroutine, the running flag and the master volume, and hands out the
// shared control block and visualizer tap.
type Pipe struct {
	uid    string
	config source.Config
	gains  *eq.Gains
	volume *airwave.Volume
	vis    *tap.Tap
	output OutputBuilder
	reader source.Reader
	log    log.Logger

	mu      sync.Mutex
	running atomic.Bool
	done    chan struct{}
}

// Option provides a way to set functional parameters to pipe.
type Option func(p *Pipe)

// WithLogger sets logger to Pipe. If this option is not provided, a
// logrus logger is used.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipe) {
		p.log = logger
	}
}

// WithOutput sets the output builder.
func WithOutput(builder OutputBuilder) Option {
	return func(p *Pipe) {
		p.output = builder
	}
}

// WithReader sets the source reader, overriding the one the config would
// build.
func WithReader(reader source.Reader) Option {
	return func(p *Pipe) {
		p.reader = reader
	}
}

// WithVisualizer sets the visualizer tap fed by the output callback.
func WithVisualizer(vis *tap.Tap) Option {
	return func(p *Pipe) {
		p.vis = vis
	}
}

// New creates a pipe for the given source config and shared control
// block. The control block outlives pipeline runs; the pipe never writes
// to it.
func New(config source.Config, gains *eq.Gains, options ...Option) *Pipe {
	p := &Pipe{
		uid:    xid.New().String(),
		config: config,
		gains:  gains,
		volume: airwave.NewVolume(100),
		vis:    tap.New(4096, 2),
		output: DeviceOutput,
		log:    log.GetLogger(),
	}
	for _, option := range options {
		option(p)
	}
	if p.reader == nil {
		p.reader = source.New(config)
	}
	return p
}

// Start spawns the producer goroutine. It returns ErrInvalidState if the
// pipe is already running.
func (p *Pipe) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running.CompareAndSwap(false, true) {
		return ErrInvalidState
	}
	p.done = make(chan struct{})
	go p.run(p.done)
	p.log.Infof("pipe %s started: %s", p.uid, p.config.Format)
	return nil
}

// Stop clears the running flag and joins the producer goroutine. The join
// is the only blocking step: the producer observes the flag within one IO
// call or one cancellation tick.
func (p *Pipe) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running.Store(false)
	if p.done != nil {
		<-p.done
		p.done = nil
	}
	p.log.Infof("pipe %s stopped", p.uid)
}

// IsRunning reports whether the producer goroutine is alive.
func (p *Pipe) IsRunning() bool {
	return p.running.Load()
}

// SetVolume sets the master volume percent, capped at 100.
func (p *Pipe) SetVolume(percent uint8) {
	p.volume.Set(percent)
}

// Volume returns the master volume percent.
func (p *Pipe) Volume() uint8 {
	return p.volume.Percent()
}

// Gains returns the shared control block.
func (p *Pipe) Gains() *eq.Gains {
	return p.gains
}

// Visualizer returns the tap fed by the output callback.
func (p *Pipe) Visualizer() *tap.Tap {
	return p.vis
}

// cancelled reports whether the running flag has been cleared.
func (p *Pipe) cancelled() bool {
	return !p.running.Load()
}

// sleep waits for d in cancellation ticks so shutdown is never delayed by
// a long retry pause.
func (p *Pipe) sleep(d time.Duration) {
	deadline := time.Now().Add(d)
	for p.running.Load() && time.Now().Before(deadline) {
		time.Sleep(cancellationTick)
	}
}

// Package device plays the pipeline's output on the default audio device
// through portaudio. The fill callback runs on the audio subsystem's own
// thread: it never blocks, never allocates and has no failure path other
// than emitting silence.
package device

import (
	"expvar"

	"github.com/gordonklaus/portaudio"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/metric"
	"github.com/dudk/airwave/ring"
	"github.com/dudk/airwave/tap"
)

// Fade envelope increments per sample. Hi-res streams use the slower ramp.
const (
	FadeStepStandard = float32(0.005)
	FadeStepHiRes    = float32(0.003)
)

// filler produces device buffers from the ring buffer. The fade state is
// owned exclusively by this struct and the single callback thread; it is
// never shared or locked.
type filler struct {
	ring      *ring.Buffer
	volume    *airwave.Volume
	vis       *tap.Tap
	channels  int
	fade      float32
	step      float32
	last      float32
	underruns *expvar.Int
}

func newFiller(buf *ring.Buffer, volume *airwave.Volume, vis *tap.Tap, channels int, step float32) *filler {
	return &filler{
		ring:      buf,
		volume:    volume,
		vis:       vis,
		channels:  channels,
		step:      step,
		underruns: metric.Counter(metric.UnderrunCounter),
	}
}

// fill writes one device buffer. A popped sample ramps the fade envelope
// toward 1; a miss ramps it toward 0 while holding the last popped value,
// so stream start, stop and underruns decay smoothly instead of clicking.
// Every emitted sample is scaled by fade and the cubic volume gain.
func (f *filler) fill(out []float32) {
	gain := f.volume.Gain()
	misses := 0
	for i := range out {
		if s, ok := f.ring.Pop(); ok {
			if f.fade < 1 {
				f.fade += f.step
				if f.fade > 1 {
					f.fade = 1
				}
			}
			f.last = s
			out[i] = s * f.fade * gain
		} else {
			if f.fade > 0 {
				f.fade -= f.step
				if f.fade < 0 {
					f.fade = 0
				}
			}
			out[i] = f.last * f.fade * gain
			misses++
		}
	}
	if misses > 0 {
		f.underruns.Add(int64(misses))
	}
	if f.vis != nil {
		f.vis.Feed(out, f.channels)
	}
}

// Stream is a running portaudio output stream.
type Stream struct {
	stream *portaudio.Stream
}

// Open initializes portaudio and starts an output stream on the default
// device at the given format. Everything the callback touches is acquired
// here, before the stream exists; the callback itself performs no fallible
// setup.
func Open(format airwave.Format, buf *ring.Buffer, volume *airwave.Volume, vis *tap.Tap) (*Stream, error) {
	step := FadeStepStandard
	if format.IsHiRes() {
		step = FadeStepHiRes
	}
	f := newFiller(buf, volume, vis, format.Channels, step)

	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	stream, err := portaudio.OpenDefaultStream(
		0,
		format.Channels,
		float64(format.SampleRate),
		portaudio.FramesPerBufferUnspecified,
		f.fill,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return &Stream{stream: stream}, nil
}

// Close stops the stream and terminates portaudio structures.
func (s *Stream) Close() error {
	err := s.stream.Stop()
	if closeErr := s.stream.Close(); err == nil {
		err = closeErr
	}
	if termErr := portaudio.Terminate(); err == nil {
		err = termErr
	}
	return err
}

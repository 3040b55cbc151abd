package pipe

import (
	"time"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/eq"
	"github.com/dudk/airwave/metric"
	"github.com/dudk/airwave/ring"
	"github.com/dudk/airwave/signal"
	"github.com/dudk/airwave/source"
)

// run is the producer loop: connect, read, decode, process, push — gated
// on the running flag. It doubles as the format-change coordinator: a new
// format from the source rebuilds the equalizer, the output stream and the
// read geometry, and clears the ring buffer.
func (p *Pipe) run(done chan struct{}) {
	defer close(done)
	defer p.running.Store(false)

	reader := p.reader
	format := reader.Format().Clamp()

	// the ring buffer is allocated once per run; reconnects and format
	// changes clear it without reallocating
	capacity := standardCapacity
	if format.IsHiRes() {
		capacity = hiResCapacity
	}
	buf := ring.New(capacity)

	equalizer := eq.New(format.SampleRate, format.Channels, p.gains)
	readBuf := make([]byte, readFrames*format.FrameSize())
	carry := 0 // bytes of a partial frame kept for the next read

	var out Output
	var lastBuild time.Time
	buildOutput := func() {
		if out != nil || time.Since(lastBuild) < rebuildRetryDelay {
			return
		}
		lastBuild = time.Now()
		o, err := p.output(format, buf, p.volume, p.vis)
		if err != nil {
			// no device is not fatal: the pipeline idles silently and
			// retries while EQ controls stay fully operable
			p.log.Warnf("pipe %s: output unavailable, will retry: %v", p.uid, err)
			return
		}
		out = o
	}
	rebuild := func(next airwave.Format) {
		p.log.Infof("pipe %s: format change %s -> %s", p.uid, format, next)
		format = next
		equalizer = eq.New(format.SampleRate, format.Channels, p.gains)
		readBuf = make([]byte, readFrames*format.FrameSize())
		carry = 0
		if out != nil {
			out.Close()
			out = nil
		}
		lastBuild = time.Time{}
		buildOutput()
		buf.Clear()
		metric.Add(metric.RebuildCounter, 1)
	}

	samples := metric.Counter(metric.SampleCounter)
	drops := metric.Counter(metric.DropCounter)
	buildOutput()

	for p.running.Load() {
		if err := reader.Connect(); err != nil {
			p.log.Debugf("pipe %s: connect: %v", p.uid, err)
			p.sleep(reader.RetryDelay())
			continue
		}
		metric.Add(metric.ReconnectCounter, 1)
		// a fresh connection must not play samples of the previous one
		buf.Clear()
		carry = 0
		if next := reader.Format().Clamp(); next != format {
			rebuild(next)
		}

		for p.running.Load() {
			// the piped source refreshes this from the control plane on
			// its own poll interval; the streamed one only on reconnect
			if next := reader.Format().Clamp(); next != format {
				rebuild(next)
			}
			if out == nil {
				buildOutput()
			}

			n, err := reader.Read(readBuf[carry:])
			if err != nil {
				if source.IsTransient(err) {
					p.sleep(transientReadDelay)
					continue
				}
				// stream discontinuity: drop filter state so the tail of
				// the old stream cannot ring into the new one
				equalizer.Reset()
				p.log.Debugf("pipe %s: read: %v", p.uid, err)
				break
			}
			if n == 0 {
				p.sleep(transientReadDelay)
				continue
			}

			total := carry + n
			floats := signal.DecodeFrames(readBuf[:total], format.BitDepth, format.Channels)
			consumed := len(floats) * format.BitDepth.Bytes()
			carry = copy(readBuf, readBuf[consumed:total])
			if len(floats) == 0 {
				continue
			}

			equalizer.Process(floats)
			dropped := buf.Dropped()
			if buf.Push(floats, p.cancelled) {
				samples.Add(int64(len(floats)))
			}
			if d := buf.Dropped() - dropped; d > 0 {
				drops.Add(int64(d))
			}
		}
		reader.Close()
		p.sleep(reconnectPause)
	}

	reader.Close()
	if out != nil {
		out.Close()
	}
}

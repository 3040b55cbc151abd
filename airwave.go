package airwave

import (
	"fmt"

	"github.com/dudk/airwave/signal"
)

// Sanity bounds for formats announced by upstream. Values outside these
// ranges come from corrupt headers and are clamped rather than trusted.
const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MinChannels   = 1
	MaxChannels   = 8
)

// Format describes the PCM stream currently flowing through the pipeline.
type Format struct {
	SampleRate int
	BitDepth   signal.BitDepth
	Channels   int
}

// DefaultFormat is the best-guess format used before upstream announces one.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		BitDepth:   signal.BitDepth16,
		Channels:   2,
	}
}

// Clamp sanitizes a format read from an untrusted header so that a corrupt
// value cannot build an absurd device stream. Unknown bit depths fall back
// to 16 bit.
func (f Format) Clamp() Format {
	if f.SampleRate < MinSampleRate {
		f.SampleRate = MinSampleRate
	}
	if f.SampleRate > MaxSampleRate {
		f.SampleRate = MaxSampleRate
	}
	if f.Channels < MinChannels {
		f.Channels = MinChannels
	}
	if f.Channels > MaxChannels {
		f.Channels = MaxChannels
	}
	switch f.BitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		f.BitDepth = signal.BitDepth16
	}
	return f
}

// IsHiRes reports whether the format exceeds CD quality. Hi-res streams get
// larger buffering and a slower fade ramp.
func (f Format) IsHiRes() bool {
	return f.SampleRate > 44100 || f.BitDepth > signal.BitDepth16
}

// FrameSize returns the size of one interleaved frame in bytes.
func (f Format) FrameSize() int {
	return f.BitDepth.Bytes() * f.Channels
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", f.SampleRate, f.BitDepth, f.Channels)
}

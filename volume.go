package airwave

import (
	"math"
	"sync/atomic"
)

// Volume is the master volume control: written by the UI, read by the
// real-time output callback. The zero value is muted.
type Volume struct {
	percent atomic.Uint32
}

// NewVolume returns a volume set to the given percent.
func NewVolume(percent uint8) *Volume {
	v := &Volume{}
	v.Set(percent)
	return v
}

// Set stores the volume percent, capped at 100.
func (v *Volume) Set(percent uint8) {
	if percent > 100 {
		percent = 100
	}
	v.percent.Store(uint32(percent))
}

// Percent returns the stored volume percent.
func (v *Volume) Percent() uint8 {
	return uint8(v.percent.Load())
}

// Gain returns the linear gain for the stored percent. The taper is cubic
// so equal volume steps feel equally loud: 100 maps to 1.0, 50 to 0.125,
// 0 to 0.0.
func (v *Volume) Gain() float32 {
	return float32(math.Pow(float64(v.percent.Load())/100.0, 3))
}

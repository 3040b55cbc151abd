// Package eq implements a 10-band peaking equalizer with preamp and
// balance. Filters follow the Audio EQ Cookbook biquad recipe. The chain
// operates in place on interleaved float32 buffers and re-reads its shared
// control block once per buffer.
package eq

import "math"

// butterworthQ is the quality factor used for every peaking band.
const butterworthQ = 1.0 / math.Sqrt2

// gainEpsilon is the band change below which coefficients are not rebuilt.
const gainEpsilon = 0.01

// biquad is a direct form 1 second-order section with per-channel state.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     []float64
}

func newBiquad(sampleRate, freq, gainDB float64, numChannels int) *biquad {
	b := &biquad{
		x1: make([]float64, numChannels),
		x2: make([]float64, numChannels),
		y1: make([]float64, numChannels),
		y2: make([]float64, numChannels),
	}
	b.setPeaking(sampleRate, freq, gainDB)
	return b
}

// setPeaking computes peaking EQ coefficients per the Audio EQ Cookbook.
func (b *biquad) setPeaking(sampleRate, freq, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	sinW0 := math.Sin(w0)
	cosW0 := math.Cos(w0)
	alpha := sinW0 / (2 * butterworthQ)

	a0 := 1 + alpha/a
	b.b0 = (1 + alpha*a) / a0
	b.b1 = -2 * cosW0 / a0
	b.b2 = (1 - alpha*a) / a0
	b.a1 = -2 * cosW0 / a0
	b.a2 = (1 - alpha/a) / a0
}

func (b *biquad) run(ch int, x float64) float64 {
	y := b.b0*x + b.b1*b.x1[ch] + b.b2*b.x2[ch] - b.a1*b.y1[ch] - b.a2*b.y2[ch]
	b.x2[ch] = b.x1[ch]
	b.x1[ch] = x
	b.y2[ch] = b.y1[ch]
	b.y1[ch] = y
	return y
}

func (b *biquad) reset() {
	for ch := range b.x1 {
		b.x1[ch], b.x2[ch], b.y1[ch], b.y2[ch] = 0, 0, 0, 0
	}
}

// Equalizer is the processing half of the chain. Coefficients are a
// function of the sample rate: a rate change requires a full rebuild with
// New, never in-place patching.
type Equalizer struct {
	sampleRate  float64
	numChannels int
	gains       *Gains
	filters     [NumBands]*biquad

	last     [NumBands]float64 // gains the coefficients were built for
	headroom float64           // linear attenuation compensating max boost

	// crossfade between dry and wet signal on enable/disable
	mix       float64
	targetMix float64
	mixStep   float64
}

// New builds an equalizer for the given sample rate and channel count,
// reading its settings from the shared control block.
func New(sampleRate int, numChannels int, gains *Gains) *Equalizer {
	e := &Equalizer{
		sampleRate:  float64(sampleRate),
		numChannels: numChannels,
		gains:       gains,
		headroom:    1.0,
		// ~10ms ramp on enable/disable
		mixStep: 1.0 / (float64(sampleRate) * 0.010),
	}
	for i := range e.filters {
		e.filters[i] = newBiquad(e.sampleRate, Frequencies[i], 0, numChannels)
	}
	if gains.Enabled() {
		e.mix, e.targetMix = 1, 1
	}
	return e
}

// SampleRate returns the rate the filter coefficients were built for.
func (e *Equalizer) SampleRate() int {
	return int(e.sampleRate)
}

// Coefficients returns the current feedforward coefficients of one band.
// Exposed for verification of rate-dependent rebuilds.
func (e *Equalizer) Coefficients(band int) (b0, b1, b2 float64) {
	f := e.filters[band]
	return f.b0, f.b1, f.b2
}

// Process applies the chain in place on an interleaved buffer: bands in
// order, headroom compensation, limiter, user preamp, then balance. With
// the control block disabled the buffer passes through untouched and
// filter state is preserved.
func (e *Equalizer) Process(buf []float32) {
	if len(buf) == 0 || e.numChannels == 0 {
		return
	}
	s := e.gains.snapshot()
	if s.enabled {
		e.targetMix = 1
	} else {
		e.targetMix = 0
	}
	if e.mix == e.targetMix && e.mix == 0 {
		return
	}
	e.updateFilters(s.bands)

	userPreamp := 1.0
	if s.preamp != 0 {
		userPreamp = math.Pow(10, s.preamp/20)
	}
	// balance=0 keeps both channels at unity, +/-1 silences the opposite one
	leftGain, rightGain := 1.0, 1.0
	if s.balance > 0 {
		leftGain = 1 - s.balance
	} else if s.balance < 0 {
		rightGain = 1 + s.balance
	}

	for i := 0; i+e.numChannels <= len(buf); i += e.numChannels {
		// ramp the dry/wet mix toward the target to avoid toggle clicks
		if e.mix < e.targetMix {
			e.mix = math.Min(e.mix+e.mixStep, e.targetMix)
		} else if e.mix > e.targetMix {
			e.mix = math.Max(e.mix-e.mixStep, e.targetMix)
		}
		if e.mix <= 0.0001 {
			continue
		}
		for ch := 0; ch < e.numChannels; ch++ {
			dry := float64(buf[i+ch])
			wet := dry * e.headroom
			for band := range e.filters {
				wet = e.filters[band].run(ch, wet)
			}
			wet = limiter(wet) * userPreamp
			if e.numChannels >= 2 {
				switch ch {
				case 0:
					wet *= leftGain
				case 1:
					wet *= rightGain
				}
			}
			if e.mix >= 0.9999 {
				buf[i+ch] = float32(wet)
			} else {
				buf[i+ch] = float32(dry*(1-e.mix) + wet*e.mix)
			}
		}
	}
}

// updateFilters recomputes coefficients for bands whose gain moved, and
// derives the headroom attenuation from the largest boost so a fully
// boosted band cannot clip before the limiter.
func (e *Equalizer) updateFilters(bands [NumBands]float64) {
	changed := false
	for i := range bands {
		if math.Abs(bands[i]-e.last[i]) > gainEpsilon {
			changed = true
			break
		}
	}
	if !changed {
		return
	}
	maxBoost := 0.0
	for _, g := range bands {
		if g > maxBoost {
			maxBoost = g
		}
	}
	if maxBoost > 0 {
		e.headroom = math.Pow(10, -maxBoost/20)
	} else {
		e.headroom = 1.0
	}
	for i := range e.filters {
		e.filters[i].setPeaking(e.sampleRate, Frequencies[i], bands[i])
	}
	e.last = bands
}

// Reset clears internal filter state. Called on stream discontinuity so a
// transient from the previous stream cannot ring into the next one.
func (e *Equalizer) Reset() {
	for i := range e.filters {
		e.filters[i].reset()
	}
}

// limiter saturates smoothly with a little headroom left, preventing hard
// clipping after boosted bands.
func limiter(x float64) float64 {
	return math.Tanh(x) * 0.95
}

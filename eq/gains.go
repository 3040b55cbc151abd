package eq

import "sync"

// Frequencies are the center frequencies of the 10 equalizer bands in Hz.
var Frequencies = [10]float64{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// NumBands is the number of equalizer bands.
const NumBands = len(Frequencies)

// ValueToDB converts a normalized UI value (0.0-1.0) to band gain in dB,
// 0.5 maps to 0 dB.
func ValueToDB(value float64) float64 {
	return (value - 0.5) * 24.0
}

// DBToValue converts band gain in dB (-12 to +12) to a normalized UI value.
func DBToValue(db float64) float64 {
	return db/24.0 + 0.5
}

// Gains is the shared control block between the UI and the signal chain.
// The UI mutates it, the equalizer re-reads it once per processed buffer,
// so a change becomes audible within one buffer. It outlives individual
// pipeline runs and is safe for concurrent use.
type Gains struct {
	mu      sync.RWMutex
	bands   [NumBands]float64 // dB, -12..+12
	enabled bool
	preamp  float64 // dB, -12..+12
	balance float64 // -1 full left .. +1 full right
}

// NewGains returns a flat, enabled control block.
func NewGains() *Gains {
	return &Gains{enabled: true}
}

// snapshot is a consistent copy of all control values.
type snapshot struct {
	bands   [NumBands]float64
	enabled bool
	preamp  float64
	balance float64
}

func (g *Gains) snapshot() snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return snapshot{
		bands:   g.bands,
		enabled: g.enabled,
		preamp:  g.preamp,
		balance: g.balance,
	}
}

// SetGain sets a single band gain in dB, clamped to [-12, +12].
func (g *Gains) SetGain(band int, db float64) {
	if band < 0 || band >= NumBands {
		return
	}
	g.mu.Lock()
	g.bands[band] = clamp(db, -12, 12)
	g.mu.Unlock()
}

// SetGainFromValue sets a single band gain from a normalized UI value.
func (g *Gains) SetGainFromValue(band int, value float64) {
	g.SetGain(band, ValueToDB(value))
}

// SetAllFromValues sets all band gains from normalized UI values.
func (g *Gains) SetAllFromValues(values [NumBands]float64) {
	g.mu.Lock()
	for i, v := range values {
		g.bands[i] = clamp(ValueToDB(v), -12, 12)
	}
	g.mu.Unlock()
}

// Bands returns a copy of all band gains in dB.
func (g *Gains) Bands() [NumBands]float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.bands
}

// SetEnabled toggles the equalizer. Disabling bypasses processing but keeps
// filter state, so re-enabling does not click.
func (g *Gains) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
}

// Enabled reports whether the equalizer is active.
func (g *Gains) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

// SetPreampDB sets the user preamp in dB, clamped to [-12, +12].
func (g *Gains) SetPreampDB(db float64) {
	g.mu.Lock()
	g.preamp = clamp(db, -12, 12)
	g.mu.Unlock()
}

// PreampDB returns the user preamp in dB.
func (g *Gains) PreampDB() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.preamp
}

// SetBalance sets stereo balance, clamped to [-1, +1].
func (g *Gains) SetBalance(balance float64) {
	g.mu.Lock()
	g.balance = clamp(balance, -1, 1)
	g.mu.Unlock()
}

// Balance returns the stereo balance.
func (g *Gains) Balance() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.balance
}

// Reset returns all bands to 0 dB.
func (g *Gains) Reset() {
	g.mu.Lock()
	g.bands = [NumBands]float64{}
	g.mu.Unlock()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

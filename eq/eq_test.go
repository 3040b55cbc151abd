package eq_test

import (
	"math"
	"testing"

	"github.com/dudk/airwave/eq"
	"github.com/stretchr/testify/assert"
)

func TestValueMapping(t *testing.T) {
	assert.InDelta(t, 0.0, eq.ValueToDB(0.5), 1e-9)
	assert.InDelta(t, 12.0, eq.ValueToDB(1.0), 1e-9)
	assert.InDelta(t, -12.0, eq.ValueToDB(0.0), 1e-9)
	assert.InDelta(t, 0.5, eq.DBToValue(0), 1e-9)
	assert.InDelta(t, 1.0, eq.DBToValue(12), 1e-9)
}

func TestGainsClamping(t *testing.T) {
	g := eq.NewGains()
	g.SetGain(0, 100)
	assert.Equal(t, 12.0, g.Bands()[0])
	g.SetGain(0, -100)
	assert.Equal(t, -12.0, g.Bands()[0])
	g.SetGain(-1, 6) // out of range band is ignored
	g.SetGain(10, 6)
	g.SetPreampDB(20)
	assert.Equal(t, 12.0, g.PreampDB())
	g.SetBalance(-3)
	assert.Equal(t, -1.0, g.Balance())
	g.Reset()
	assert.Equal(t, [eq.NumBands]float64{}, g.Bands())
}

func TestGainsSetAllFromValues(t *testing.T) {
	g := eq.NewGains()
	var values [eq.NumBands]float64
	for i := range values {
		values[i] = 1.0
	}
	g.SetAllFromValues(values)
	for _, db := range g.Bands() {
		assert.InDelta(t, 12.0, db, 1e-9)
	}
}

func TestBypass(t *testing.T) {
	g := eq.NewGains()
	g.SetEnabled(false)
	e := eq.New(44100, 2, g)

	buf := make([]float32, 1024)
	e.Process(buf)
	for i := range buf {
		assert.Equal(t, float32(0), buf[i])
	}

	// non-silence also passes through unchanged when disabled
	for i := range buf {
		buf[i] = float32(i%7) * 0.1
	}
	expected := make([]float32, len(buf))
	copy(expected, buf)
	e.Process(buf)
	assert.Equal(t, expected, buf)
}

func TestFlatChainIsNearIdentity(t *testing.T) {
	g := eq.NewGains()
	e := eq.New(44100, 2, g)

	buf := make([]float32, 512)
	for i := range buf {
		buf[i] = 0.1 * float32(math.Sin(2*math.Pi*float64(i)/64))
	}
	expected := make([]float32, len(buf))
	copy(expected, buf)
	e.Process(buf)
	// flat bands are identity filters, only the limiter touches the signal
	for i := range buf {
		assert.InDelta(t, float64(expected[i]), float64(buf[i]), 0.01)
	}
}

func TestBoostChangesSignal(t *testing.T) {
	g := eq.NewGains()
	g.SetGain(5, 12) // 1kHz
	e := eq.New(44100, 2, g)

	buf := make([]float32, 8820*2)
	for i := 0; i < len(buf); i += 2 {
		v := float32(0.25 * math.Sin(2*math.Pi*1000*float64(i/2)/44100))
		buf[i], buf[i+1] = v, v
	}
	original := make([]float32, len(buf))
	copy(original, buf)
	e.Process(buf)

	diff := 0.0
	for i := range buf {
		diff += math.Abs(float64(buf[i] - original[i]))
	}
	assert.True(t, diff > 1.0, "boosted band should alter the signal")
}

func TestCoefficientsDependOnSampleRate(t *testing.T) {
	g := eq.NewGains()
	g.SetGain(0, 6)
	e44 := eq.New(44100, 2, g)
	e96 := eq.New(96000, 2, g)

	// process a buffer so gains are applied to the coefficients
	buf := make([]float32, 64)
	e44.Process(buf)
	buf = make([]float32, 64)
	e96.Process(buf)

	b0a, b1a, _ := e44.Coefficients(0)
	b0b, b1b, _ := e96.Coefficients(0)
	assert.False(t, b0a == b0b && b1a == b1b, "coefficients must differ across sample rates")
	assert.Equal(t, 44100, e44.SampleRate())
	assert.Equal(t, 96000, e96.SampleRate())
}

func TestBalance(t *testing.T) {
	makeBuf := func() []float32 {
		buf := make([]float32, 256)
		for i := range buf {
			buf[i] = 0.2
		}
		return buf
	}

	// center: both channels keep the same level
	g := eq.NewGains()
	e := eq.New(44100, 2, g)
	center := makeBuf()
	e.Process(center)
	assert.InDelta(t, float64(center[0]), float64(center[1]), 1e-6)

	// full right: left channel attenuated to silence
	g = eq.NewGains()
	g.SetBalance(1)
	e = eq.New(44100, 2, g)
	right := makeBuf()
	e.Process(right)
	assert.InDelta(t, 0.0, float64(right[254]), 1e-6)
	assert.True(t, right[255] > 0.1)

	// full left: right channel attenuated to silence
	g = eq.NewGains()
	g.SetBalance(-1)
	e = eq.New(44100, 2, g)
	left := makeBuf()
	e.Process(left)
	assert.True(t, left[254] > 0.1)
	assert.InDelta(t, 0.0, float64(left[255]), 1e-6)
}

func TestResetClearsFilterState(t *testing.T) {
	g := eq.NewGains()
	g.SetGain(9, 12)
	e := eq.New(44100, 2, g)

	noise := make([]float32, 2048)
	for i := range noise {
		noise[i] = float32(math.Sin(float64(i) * 12000 * 2 * math.Pi / 44100))
	}
	e.Process(noise)
	e.Reset()

	// after a reset, silence in produces silence out for flat filters
	g.Reset()
	silence := make([]float32, 2048)
	e.Process(silence)
	for i := range silence {
		assert.InDelta(t, 0.0, float64(silence[i]), 1e-6)
	}
}

// Package signal converts raw PCM byte streams into normalized float
// samples. It allows to:
//	- decode interleaved little-endian signed PCM of 16/24/32 bit depth
//	- drop truncated trailing frames instead of reading out of bounds
package signal

const (
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for PCM-to-float conversion.
type BitDepth int

// Bytes returns the number of bytes occupied by a single sample.
func (bitDepth BitDepth) Bytes() int {
	return int(bitDepth) / 8
}

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() float32 {
	switch bitDepth {
	case BitDepth16:
		return 1 << 15
	case BitDepth24:
		return 1 << 23
	case BitDepth32:
		return 1 << 31
	default:
		return 1
	}
}

// Decode converts interleaved little-endian signed PCM bytes into
// normalized float32 samples in [-1.0, 1.0]. A trailing partial sample is
// dropped. The conversion is stateless: channel layout is preserved as-is.
func Decode(data []byte, bitDepth BitDepth) []float32 {
	bps := bitDepth.Bytes()
	if bps == 0 || len(data) < bps {
		return nil
	}
	samples := len(data) / bps
	devider := bitDepth.devider()
	floats := make([]float32, samples)

	switch bitDepth {
	case BitDepth16:
		for i := 0; i < samples; i++ {
			offset := i * 2
			s := int16(uint16(data[offset]) | uint16(data[offset+1])<<8)
			floats[i] = float32(s) / devider
		}
	case BitDepth24:
		for i := 0; i < samples; i++ {
			offset := i * 3
			// sign-extend three bytes through a 32-bit intermediate
			u := uint32(data[offset])<<8 | uint32(data[offset+1])<<16 | uint32(data[offset+2])<<24
			s := int32(u) >> 8
			floats[i] = float32(s) / devider
		}
	case BitDepth32:
		for i := 0; i < samples; i++ {
			offset := i * 4
			u := uint32(data[offset]) | uint32(data[offset+1])<<8 |
				uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
			floats[i] = float32(int32(u)) / devider
		}
	}
	return floats
}

// DecodeFrames is like Decode but also drops a trailing partial frame, so
// the result always holds whole interleaved frames for the channel count.
func DecodeFrames(data []byte, bitDepth BitDepth, numChannels int) []float32 {
	if numChannels < 1 {
		return nil
	}
	frameSize := bitDepth.Bytes() * numChannels
	if frameSize == 0 {
		return nil
	}
	whole := len(data) / frameSize * frameSize
	return Decode(data[:whole], bitDepth)
}

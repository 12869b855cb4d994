// ABOUTME: PCM sample codec for little-endian signed integer audio
// ABOUTME: Converts 8/16/24/32-bit samples to and from float32 and applies gain in place
package pcm

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

// Codec reads and writes samples of one bit depth. None of its methods
// allocate, so it is safe to use from a device callback.
type Codec struct {
	bitDepth       int
	bytesPerSample int
	min            int64
	max            int64
	fullScale      float64
}

// New creates a codec for the given bit depth
func New(bitDepth int) (*Codec, error) {
	c := &Codec{
		bitDepth:       bitDepth,
		bytesPerSample: bitDepth / 8,
	}

	switch bitDepth {
	case 8:
		c.min, c.max = -128, 127
	case 16:
		c.min, c.max = -32768, 32767
	case 24:
		c.min, c.max = audio.Min24Bit, audio.Max24Bit
	case 32:
		c.min, c.max = -2147483648, 2147483647
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", bitDepth)
	}
	c.fullScale = float64(-c.min)

	return c, nil
}

// NewForFormat creates a codec matching the format's bit depth
func NewForFormat(format audio.Format) (*Codec, error) {
	return New(format.BitDepth)
}

// BitDepth returns the sample width in bits
func (c *Codec) BitDepth() int {
	return c.bitDepth
}

// BytesPerSample returns the sample width in bytes
func (c *Codec) BytesPerSample() int {
	return c.bytesPerSample
}

// Decode converts PCM bytes to float32 samples in [-1, 1).
// Returns the number of samples written to dst.
func (c *Codec) Decode(src []byte, dst []float32) int {
	n := len(src) / c.bytesPerSample
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(float64(c.sample(src[i*c.bytesPerSample:])) / c.fullScale)
	}
	return n
}

// Encode converts float32 samples to PCM bytes, clipping to [-1, 1].
// Returns the number of samples written to dst.
func (c *Codec) Encode(src []float32, dst []byte) int {
	n := len(dst) / c.bytesPerSample
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		v := float64(src[i])
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		c.put(dst[i*c.bytesPerSample:], c.clamp(int64(v*float64(c.max))))
	}
	return n
}

// Scale multiplies every sample in data by gain with clipping protection
func (c *Codec) Scale(data []byte, gain float32) {
	if gain == 1.0 {
		return
	}

	g := float64(gain)
	n := len(data) / c.bytesPerSample
	for i := 0; i < n; i++ {
		off := i * c.bytesPerSample
		scaled := int64(float64(c.sample(data[off:])) * g)
		c.put(data[off:], c.clamp(scaled))
	}
}

func (c *Codec) clamp(v int64) int64 {
	if v > c.max {
		return c.max
	}
	if v < c.min {
		return c.min
	}
	return v
}

// sample reads one signed sample from the start of b
func (c *Codec) sample(b []byte) int64 {
	switch c.bitDepth {
	case 8:
		return int64(int8(b[0]))
	case 16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		return int64(audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]}))
	default:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	}
}

// put writes one signed sample to the start of b
func (c *Codec) put(b []byte, v int64) {
	switch c.bitDepth {
	case 8:
		b[0] = byte(int8(v))
	case 16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case 24:
		packed := audio.SampleTo24Bit(int32(v))
		b[0], b[1], b[2] = packed[0], packed[1], packed[2]
	default:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	}
}

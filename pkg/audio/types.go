// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM playback format, fill buffers and 24-bit sample helpers
package audio

import (
	"errors"
	"fmt"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// ErrInvalidFormat is wrapped by every Format validation failure
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes an uncompressed, little-endian, signed integer PCM stream.
// One packet is always one frame.
type Format struct {
	SampleRate int // frames per second
	Channels   int // 1 (mono) or 2 (stereo)
	BitDepth   int // 8, 16, 24 or 32 bits per sample
}

// Validate checks the format against what the playback engines support
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: unsupported channel count: %d (supported: 1, 2)", ErrInvalidFormat, f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: unsupported bit depth: %d (supported: 8, 16, 24, 32)", ErrInvalidFormat, f.BitDepth)
	}
	return nil
}

// BytesPerSample returns the size of a single channel sample
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// BytesPerFrame returns the size of one sample for every channel
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BytesPerSample()
}

// FramesPerPacket is always 1 for uncompressed audio
func (f Format) FramesPerPacket() int {
	return 1
}

// BytesPerPacket returns the packet size, which equals the frame size
func (f Format) BytesPerPacket() int {
	return f.BytesPerFrame() * f.FramesPerPacket()
}

// FramesIn returns how many whole frames fit in n bytes
func (f Format) FramesIn(n int) int {
	if bpf := f.BytesPerFrame(); bpf > 0 {
		return n / bpf
	}
	return 0
}

// Duration returns the playback time of the given number of frames
func (f Format) Duration(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Buffer is a fixed-capacity region of PCM bytes handed to a fill routine.
//
// The player owns it while idle or queued; a fill routine borrows it for the
// duration of one call and must not resize it or keep a reference.
type Buffer struct {
	Data []byte  // len(Data) is the capacity
	Size int     // bytes of valid audio, always <= len(Data)
	Gain float32 // playback gain stamped at submission
}

// NewBuffer allocates a buffer with the given capacity in bytes
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Data: make([]byte, capacity),
		Gain: 1.0,
	}
}

// Capacity returns the fixed size of the buffer in bytes
func (b *Buffer) Capacity() int {
	return len(b.Data)
}

// Bytes returns the valid portion of the buffer
func (b *Buffer) Bytes() []byte {
	size := b.Size
	if size > len(b.Data) {
		size = len(b.Data)
	}
	if size < 0 {
		size = 0
	}
	return b.Data[:size]
}

// Silence zero-fills the whole buffer and marks it full
func (b *Buffer) Silence() {
	clear(b.Data)
	b.Size = len(b.Data)
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}
